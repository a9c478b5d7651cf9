package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/dndsim/combat-engine/backend/pkg/logger"
	"github.com/dndsim/combat-engine/backend/pkg/response"
)

// RequestLogger logs every HTTP request with a request id that is also
// planted on the context for pkg/response and pkg/logger to pick up.
func RequestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.New().String()
			}

			ctx := logger.ContextWithRequestID(r.Context(), requestID)
			ctx = context.WithValue(ctx, response.RequestIDKey, requestID)
			r = r.WithContext(ctx)
			w.Header().Set("X-Request-ID", requestID)

			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rw, r)

			log.WithContext(ctx).Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("remote_ip", getClientIP(r)).
				Int("status", rw.statusCode).
				Int("bytes_sent", rw.bytesWritten).
				Dur("duration", time.Since(start)).
				Msg("Request completed")
		})
	}
}

// responseWriter captures status code and bytes written.
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(data []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(data)
	rw.bytesWritten += n
	return n, err
}

func getClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	return r.RemoteAddr
}
