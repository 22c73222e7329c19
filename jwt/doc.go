// Package jwt issues and verifies the signed access and refresh tokens used by
// the provider authentication engine.
//
// Both kinds share one claim layout: "uid" and "sub" name the principal, "typ"
// is "access" or "refresh", and "jti" is a random id unique per token. Access
// tokens additionally carry the provider profile (email, role, names,
// specialization, verification status).
//
// Verification is strict: the algorithm is pinned, exp is required, and
// issuer and audience are checked when configured. All failures surface as
// [ErrInvalidToken].
package jwt
