// Package flows contains pure-function orchestrators for every Engine operation.
//
// Each flow function (RunLogin, RunRefresh, RunLogout, RunValidate, etc.)
// accepts a typed dependency struct and returns a result with a flow-local
// failure kind. The root engine maps those kinds to its public error
// taxonomy, metrics, and audit events.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the credential store, attempt ledger,
// token store, and token codec. They do NOT own any of these resources;
// ownership stays with the Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import providerAuth (to avoid import cycles).
//   - Perform I/O directly. All I/O is mediated through dependency interfaces.
package flows
