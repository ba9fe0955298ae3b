package router

import (
	"net/http"
	"strings"
)

const adminTokenHeader = "X-Admin-Token"

// requireAdminToken gates the handoff administration routes behind a shared
// token. An empty expected token disables the check for local development.
func requireAdminToken(expected string) func(http.Handler) http.Handler {
	expected = strings.TrimSpace(expected)
	return func(next http.Handler) http.Handler {
		if expected == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := strings.TrimSpace(r.Header.Get(adminTokenHeader))
			if token == "" || token != expected {
				http.Error(w, "invalid admin token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
