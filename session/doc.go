// Package session provides the Redis-backed refresh-token store.
//
// # Layout
//
// Each record is a Redis hash under "<prefix>:t:<fingerprint>" whose fields
// hold the record columns. Timestamps are Unix milliseconds. A set under
// "<prefix>:p:<principal>" indexes the fingerprints issued to a principal and
// is pruned lazily when members have expired.
//
// Keys expire at the record expiry plus a retention grace, so revoked and
// freshly expired records stay visible to reuse checks for a while before
// Redis drops them.
//
// # Atomicity
//
// Save, revoke, revoke-all, count and rotate each run as one Lua script.
// Rotation checks the predecessor, flips its revoked flag and writes the
// successor in the same script, so no interleaving can leave both active.
// Scripts touch keys of more than one slot; use a single node or a
// sentinel-managed primary, not a cluster.
//
// # What this package must NOT do
//
//   - Import providerAuth or jwt.
//   - Store raw refresh tokens. Callers pass fingerprints only.
package session
