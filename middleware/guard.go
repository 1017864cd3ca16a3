package middleware

import (
	"context"
	"net/http"

	authkit "github.com/quillbox/authkit"
)

// CookieName is the session cookie the guard reads.
const CookieName = "token"

type accountIDContextKey struct{}

// AccountIDFromContext returns the account ID placed on the request context
// by [Guard].
func AccountIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(accountIDContextKey{}).(string)
	return id, ok
}

// Guard rejects requests without a valid session cookie with 401 and passes
// the rest through with the account ID on the request context. It validates
// the token signature and expiry only; whether the account still exists is
// the handler's concern.
func Guard(engine *authkit.Engine) func(http.Handler) http.Handler {
	return GuardWithCookie(engine, CookieName)
}

// GuardWithCookie is [Guard] reading a custom session cookie name. An empty
// name falls back to [CookieName].
func GuardWithCookie(engine *authkit.Engine, cookieName string) func(http.Handler) http.Handler {
	if cookieName == "" {
		cookieName = CookieName
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			cookie, err := r.Cookie(cookieName)
			if err != nil || cookie.Value == "" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			accountID, err := engine.VerifyToken(cookie.Value)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), accountIDContextKey{}, accountID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
