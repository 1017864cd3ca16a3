package httpapi

import (
	"net/http"
	"time"
)

// CookieManager writes and clears the session cookie. In cross-site mode
// (frontend on another origin) the cookie is SameSite=None, which browsers
// only accept together with Secure.
type CookieManager struct {
	name      string
	ttl       time.Duration
	secure    bool
	crossSite bool
}

func NewCookieManager(name string, ttl time.Duration, secure, crossSite bool) *CookieManager {
	if name == "" {
		name = "token"
	}
	return &CookieManager{
		name:      name,
		ttl:       ttl,
		secure:    secure,
		crossSite: crossSite,
	}
}

func (c *CookieManager) Name() string {
	return c.name
}

func (c *CookieManager) sameSite() http.SameSite {
	if c.crossSite && c.secure {
		return http.SameSiteNoneMode
	}
	return http.SameSiteLaxMode
}

// Set writes the session cookie with the token as its value.
func (c *CookieManager) Set(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.name,
		Value:    token,
		Path:     "/",
		MaxAge:   int(c.ttl.Seconds()),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: c.sameSite(),
	})
}

// Clear expires the session cookie immediately.
func (c *CookieManager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: c.sameSite(),
	})
}

// Read returns the session token from the request, or "" when the cookie
// is absent.
func (c *CookieManager) Read(r *http.Request) string {
	cookie, err := r.Cookie(c.name)
	if err != nil {
		return ""
	}
	return cookie.Value
}
