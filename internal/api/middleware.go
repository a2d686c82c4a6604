// Package api implements the GlamCal REST API using chi.
package api

import (
	"net/http"

	"github.com/starford/glamcal/internal/auth"
)

// AuthMiddleware returns middleware that validates a Bearer token with
// checker. A nil or disabled checker lets every request through.
func AuthMiddleware(checker *auth.Checker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if checker == nil || !checker.Enabled() {
				next.ServeHTTP(w, r)
				return
			}
			if !checker.Check(auth.BearerToken(r.Header.Get("Authorization"))) {
				w.Header().Set("WWW-Authenticate", `Bearer realm="glamcal"`)
				writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
