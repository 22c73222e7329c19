// Package audit implements async event dispatching for security-relevant operations.
//
// # Components
//
//   - [Sink]: interface for event consumers (channel, JSON lines, slog, no-op).
//   - [Dispatcher]: buffered async relay. It drops or blocks when full, and
//     counts delivered and dropped events per ledger outcome.
//   - [Event]: structured record of one engine decision.
//   - [OutcomeOf]: maps an event onto the login ledger's outcome vocabulary,
//     so audit streams and ledger rows can be joined on the same values.
//
// Which events to emit is decided by the engine.
//
// # What this package must NOT do
//
//   - Filter or suppress events based on business logic.
//   - Import providerAuth or any sibling internal package. The store
//     package is imported for its outcome vocabulary only.
//   - Perform network I/O beyond what a caller-supplied Sink does.
package audit
