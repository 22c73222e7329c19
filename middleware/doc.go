// Package middleware exposes HTTP adapters on top of providerAuth.Engine.
//
// # Guards
//
//   - [Guard] validates the bearer access token with a per-route mode.
//   - [RequireAccess] uses the engine's configured mode.
//   - [RequireJWTOnly] verifies the token without touching a store.
//   - [RequireStrict] also requires the principal to be active and verified.
//
// Each guard reads the Authorization header, calls Engine.Validate, and
// injects the verified claims into the request context.
//
// # Client IP
//
// [ClientIP] resolves the caller address used for rate limiting and the
// attempt ledger. Forwarded headers are honored only when the direct peer
// is in the trusted proxy allowlist.
//
// # What this package must NOT do
//
//   - Parse or create tokens directly (delegates to Engine).
//   - Make authorization decisions beyond pass/reject from Engine.Validate.
package middleware
