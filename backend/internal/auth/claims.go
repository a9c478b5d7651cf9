package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenType represents the type of JWT token.
type TokenType string

const (
	// AccessToken is used for API authentication.
	AccessToken TokenType = "access"
	// RefreshToken is used to refresh access tokens.
	RefreshToken TokenType = "refresh"
)

// Account roles. A GM creates encounters and submits commands; a
// spectator can only read state and follow event streams.
const (
	RoleGM        = "gm"
	RoleSpectator = "spectator"
)

// Claims are the custom JWT claims carried by both token types.
type Claims struct {
	UserID   string    `json:"user_id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
	Role     string    `json:"role"` // RoleGM or RoleSpectator
	Type     TokenType `json:"type"` // "access" or "refresh"
	jwt.RegisteredClaims
}

// NewClaims creates a Claims instance expiring after duration.
func NewClaims(userID, username, email, role string, tokenType TokenType, duration time.Duration) *Claims {
	now := time.Now()
	return &Claims{
		UserID:   userID,
		Username: username,
		Email:    email,
		Role:     role,
		Type:     tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(duration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        GenerateTokenID(),
		},
	}
}

// Validate checks the custom claims.
func (c *Claims) Validate() error {
	if c.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	if c.Type != AccessToken && c.Type != RefreshToken {
		return fmt.Errorf("invalid token type")
	}
	return nil
}

// TokenPair is an access and refresh token pair.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"` // seconds until access token expires
}
