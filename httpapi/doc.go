// Package httpapi adapts the engine to the JSON-over-HTTP surface consumed
// by the frontend: registration, login, logout, email verification, and
// password reset, with the session token carried in an HTTP-only cookie.
//
// Every response uses one envelope shape (success, message, errors, user);
// error sentinels from the engine map to 400/401/404/409/500.
package httpapi
