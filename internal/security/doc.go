// Package security derives the read-only security posture summary exposed
// by Engine.SecurityReport from flat configuration inputs.
//
// # What this package must NOT do
//
//   - Import the root package or any store.
//   - Report key material, password hashes, or token fingerprints.
package security
