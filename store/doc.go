// Package store defines the persistent records the authentication engine reads
// and writes, and the storage contracts it consumes.
//
// # Records
//
//   - [Principal]: a registered provider account and its login counters.
//   - [LoginAttempt]: one append-only ledger row per authentication attempt.
//   - [RefreshTokenRecord]: the persisted half of a refresh token. Only the
//     keyed fingerprint of the raw token is stored.
//
// # Targeted writes
//
// Concurrent logins and admin actions race on the same principal row. A
// [CredentialStore] never takes a whole Principal back: failures, successful
// logins, unlocks and the active flag each have their own write, and each one
// touches only its own columns. The counter only moves up through
// RecordFailure and back to zero through RecordLogin or ResetLockout.
//
// # Rotation
//
// [TokenStore.Rotate] revokes the predecessor and inserts the successor as one
// unit. Implementations must never leave both records active.
//
// # What this package must NOT do
//
//   - Import providerAuth, jwt, or any transport package.
//   - Hold raw token values or plaintext secrets.
package store
