package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/dndsim/combat-engine/backend/pkg/logger"
)

// Recovery converts a handler panic into a 500. Engine invariant
// failures (tier 2: corrupt snapshot, bad dice formula) surface as
// errors, not panics -- anything caught here is a genuine bug.
func Recovery(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					if log != nil {
						log.WithContext(r.Context()).Error().
							Str("panic", fmt.Sprint(err)).
							Str("stack_trace", string(debug.Stack())).
							Msg("Panic recovered")
					} else {
						logger.Error().
							Str("panic", fmt.Sprint(err)).
							Str("stack_trace", string(debug.Stack())).
							Msg("Panic recovered")
					}

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					fmt.Fprintf(w, `{"error":"Internal server error"}`)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
