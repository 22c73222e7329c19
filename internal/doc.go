// Package internal holds helpers private to providerAuth, currently the keyed
// refresh-token fingerprint.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - flows: login, refresh and logout orchestration over injected dependencies
//   - rate: fixed-window counters over Redis or memory
//
// # What this package must NOT do
//
//   - Export types that appear in the public providerAuth API.
//   - Be imported by any package outside the providerAuth module.
package internal
