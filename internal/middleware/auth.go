package middleware

import (
	"net/http"

	"pingboard/internal/session"
)

// RequireAuth rejects requests without the auth cookie. enabled is read
// per request so a config reload can turn authentication on or off
// without a restart.
func RequireAuth(enabled func() bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if enabled() && !session.HasAuthFlag(r) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"Authentication required"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
