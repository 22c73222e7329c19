// Package retention prunes refresh-token records and login attempts that
// have aged past their retention period.
//
// Pruning is housekeeping. The engine's correctness never depends on it:
// expired and revoked records are already inactive.
package retention
