// Package middleware exposes an HTTP middleware adapter enforcing a valid
// session cookie on protected routes.
//
// [Guard] reads the session cookie, calls Engine.VerifyToken, and injects
// the account ID into the request context. It makes no authorization
// decisions of its own and never touches the account store.
package middleware
