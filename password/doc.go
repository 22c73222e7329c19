// Package password hashes and verifies provider passwords.
//
// # Output format
//
// New hashes are Argon2id PHC strings:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Hasher] also verifies bcrypt hashes ($2a$, $2b$, $2y$) and reports them
// through [Hasher.NeedsUpgrade] so the engine can re-hash them with Argon2id
// after a successful login.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords. Callers supply plaintext and receive hashes.
//   - Import any other providerAuth package.
//   - Log plaintext passwords or hash parameters at runtime.
package password
