package middleware

import (
	"net/http"
	"strings"
)

// SecurityHeaders adds the standard security headers. The connect-src
// directive keeps ws:/wss: open for the encounter event stream and
// roster sync sockets.
func SecurityHeaders(isDevelopment bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cspDirectives := []string{
				"default-src 'self'",
				"script-src 'self' 'unsafe-inline'",
				"style-src 'self' 'unsafe-inline'",
				"img-src 'self' data:",
				"connect-src 'self' ws: wss:",
				"frame-ancestors 'none'",
				"base-uri 'self'",
				"form-action 'self'",
			}
			if !isDevelopment {
				cspDirectives = []string{
					"default-src 'self'",
					"script-src 'self'",
					"style-src 'self'",
					"img-src 'self' data:",
					"connect-src 'self' wss:",
					"frame-ancestors 'none'",
					"base-uri 'self'",
					"form-action 'self'",
					"upgrade-insecure-requests",
				}
			}
			w.Header().Set("Content-Security-Policy", strings.Join(cspDirectives, "; "))

			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

			if !isDevelopment {
				w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}

			next.ServeHTTP(w, r)
		})
	}
}
