// Package password implements password hashing and verification with
// Argon2id defaults.
//
// # Output format
//
// Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Verification reads the parameters back from the stored string, and
// [Argon2.NeedsUpgrade] reports when a hash was produced with weaker
// parameters than the current config so the caller can re-hash on the next
// successful login.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords — callers supply plaintext and receive
//     hashes.
//   - Enforce password policy; length rules belong to the engine.
//   - Log plaintext passwords or hash parameters at runtime.
package password
