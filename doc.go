// Package authkit provides the account and session engine for a note-taking
// web application: registration, login with stateless signed session tokens,
// email verification by short numeric codes, and password reset by
// high-entropy link codes.
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Architecture boundaries
//
// authkit is the public surface. It exposes [Engine], [Builder], [Config],
// the [AccountStore] contract, and value types (AuthResult, PublicAccount,
// MetricsSnapshot). Hashing lives in password/, token signing in jwt/, and
// the HTTP adapters in httpapi/ and middleware/; none of them reach back
// into engine internals.
//
// # What this package must NOT do
//
//   - Return password hashes or one-time codes from any public method;
//     callers only ever see [PublicAccount].
//   - Block lifecycle operations on notification or audit delivery — both
//     run on background dispatchers.
//   - Distinguish "unknown email" from "wrong password" or "wrong code"
//     from "expired but unknown code" in anything a caller can observe.
package authkit
