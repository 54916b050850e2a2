package http

import (
	"net/http"
	"strings"
)

// SecurityHeaders adds security-related headers to all responses. The
// relaxed Content-Security-Policy for the swagger UI is only granted when
// swagger is mounted at all; production responses always get the locked
// down policy.
func SecurityHeaders(swaggerEnabled bool) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

			csp := "default-src 'none'"
			if swaggerEnabled && strings.HasPrefix(r.URL.Path, "/swagger/") {
				// Swagger UI needs scripts, styles, and images to render
				csp = "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' data:"
			}
			w.Header().Set("Content-Security-Policy", csp)

			next.ServeHTTP(w, r)
		})
	}
}
