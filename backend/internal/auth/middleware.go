package auth

import (
	"context"
	"net/http"
	"strings"
)

// ContextKey represents the type for context keys.
type ContextKey string

const (
	// UserContextKey is the key for user claims in request context.
	UserContextKey ContextKey = "user_claims"
)

// Middleware provides authentication middleware functions. It gates who
// may reach an endpoint; whether a command is legal for the encounter is
// the rules engine's validator's business, never decided here.
type Middleware struct {
	jwtManager *JWTManager
}

// NewMiddleware creates a new authentication middleware.
func NewMiddleware(jwtManager *JWTManager) *Middleware {
	return &Middleware{jwtManager: jwtManager}
}

// Authenticate validates the bearer token and stores its claims on the
// request context.
func (m *Middleware) Authenticate(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := ExtractTokenFromHeader(r.Header.Get("Authorization"))
		if err != nil {
			http.Error(w, "Unauthorized: "+err.Error(), http.StatusUnauthorized)
			return
		}

		claims, err := m.jwtManager.ValidateToken(token, AccessToken)
		if err != nil {
			http.Error(w, "Unauthorized: "+err.Error(), http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// RequireRole authenticates and then checks the claims' role.
func (m *Middleware) RequireRole(role string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return m.Authenticate(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := GetUserFromContext(r.Context())
			if !ok {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			if !strings.EqualFold(claims.Role, role) {
				http.Error(w, "Forbidden: insufficient permissions", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireGM restricts an endpoint to game-master accounts -- encounter
// creation and command submission.
func (m *Middleware) RequireGM() func(http.HandlerFunc) http.HandlerFunc {
	return m.RequireRole(RoleGM)
}

// GetUserFromContext retrieves user claims from the request context.
func GetUserFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(UserContextKey).(*Claims)
	return claims, ok
}

// GetUserIDFromContext returns just the user id from context.
func GetUserIDFromContext(ctx context.Context) (string, bool) {
	claims, ok := GetUserFromContext(ctx)
	if !ok {
		return "", false
	}
	return claims.UserID, true
}
