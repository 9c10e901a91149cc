package session

import (
	"net/http"
	"time"
)

// The auth flag cookie. Its shape is fixed by the legacy protocol: the
// server only ever checks for auth=true.
const (
	CookieName  = "auth"
	CookieValue = "true"
)

// Cookie returns the auth flag to send with API requests, or nil when the
// guard is Anonymous. Remember-me sessions carry an expiry; others are
// session-scoped.
func (g *Guard) Cookie() *http.Cookie {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state != Authenticated {
		return nil
	}
	c := &http.Cookie{
		Name:  CookieName,
		Value: CookieValue,
		Path:  "/",
	}
	if g.remember {
		c.Expires = g.expires
		c.MaxAge = int(time.Until(g.expires) / time.Second)
	}
	return c
}

// ClearedCookie returns the cookie that erases the auth flag, as sent on
// logout: same name and path with max-age=0.
func ClearedCookie() *http.Cookie {
	return &http.Cookie{
		Name:   CookieName,
		Value:  CookieValue,
		Path:   "/",
		MaxAge: -1,
	}
}

// HasAuthFlag reports whether the request carries a valid auth flag.
func HasAuthFlag(r *http.Request) bool {
	c, err := r.Cookie(CookieName)
	return err == nil && c.Value == CookieValue
}
