package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// AdminAuth guards the operator endpoints with a static bearer token. An
// empty token disables the endpoints entirely rather than leaving them open.
func AdminAuth(token string) func(http.Handler) http.Handler {
	expected := []byte(strings.TrimSpace(token))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(expected) == 0 {
				http.Error(w, "admin endpoints disabled", http.StatusForbidden)
				return
			}
			header := r.Header.Get("Authorization")
			const prefix = "Bearer "
			if !strings.HasPrefix(header, prefix) {
				w.Header().Set("WWW-Authenticate", "Bearer")
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			presented := []byte(strings.TrimSpace(header[len(prefix):]))
			if subtle.ConstantTimeCompare(expected, presented) != 1 {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
