package models

import (
	"fmt"
	"time"
)

// User is an account that may run or watch encounters. Role "gm" may
// create encounters and submit commands; "spectator" may only read state
// and subscribe to event streams.
type User struct {
	ID           string    `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"` // never expose in JSON
	Role         string    `json:"role" db:"role"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// LoginRequest is the login request body.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterRequest is the registration request body.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by login, register and refresh.
type AuthResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"` // seconds until access token expires
	TokenType    string `json:"token_type"`
	User         User   `json:"user"`
}

// RefreshTokenRequest is the token refresh request body.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Validate performs validation on User.
func (u *User) Validate() error {
	if u.Username == "" {
		return ErrInvalidUsername
	}
	if u.Email == "" {
		return ErrInvalidEmail
	}
	return nil
}

// Custom errors for user operations.
var (
	ErrUserNotFound      = fmt.Errorf("user not found")
	ErrDuplicateUsername = fmt.Errorf("username already exists")
	ErrDuplicateEmail    = fmt.Errorf("email already exists")
	ErrInvalidUsername   = fmt.Errorf("invalid username")
	ErrInvalidEmail      = fmt.Errorf("invalid email")
	ErrInvalidPassword   = fmt.Errorf("invalid password")
)
