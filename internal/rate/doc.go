// Package rate implements fixed-window counters over a TTL-capable store.
//
// # Window semantics
//
// The first increment of a key creates it with the window as TTL; later
// increments inside the window leave the TTL alone. When the key expires the
// window resets. [RedisStore] performs INCR and the first-hit PEXPIRE in one
// Lua script so a crash between them cannot leave an immortal counter.
//
// # Store unavailability
//
// A [Limiter] built with FailOpen treats store errors as "not limited",
// reports the full budget as remaining and zero time until reset. With
// FailOpen off the same errors make IsLimited report true.
//
// # What this package must NOT do
//
//   - Decide login policy. Login throttling reads the attempt ledger.
//   - Be imported outside the providerAuth module.
package rate
