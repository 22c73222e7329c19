// Package providerAuth authenticates healthcare providers and manages the
// lifecycle of their tokens.
//
// An [Engine] runs the login state machine (validation, ledger-backed rate
// limiting, account status checks, lockout after repeated failures, a
// concurrent-session cap) and issues a signed access token together with a
// rotating refresh token. Refresh tokens are stored only as keyed
// fingerprints and are single-use: each successful [Engine.Refresh] revokes
// the presented token in the same store operation that creates its
// successor.
//
// # Storage
//
// Principals, login attempts and refresh-token records are reached through
// the interfaces in package store. Implementations ship for memory, SQLite,
// PostgreSQL and, for refresh tokens, Redis (package session).
//
// # Errors
//
// Every Engine failure is an [*Error]. Compare with errors.Is against the
// Err* sentinels or switch on [KindOf]. Unknown identifiers and wrong
// passwords are indistinguishable to the caller.
//
// # Concurrency
//
// Engine methods are safe to call from multiple goroutines after
// [Builder.Build].
package providerAuth
