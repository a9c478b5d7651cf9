package database

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RefreshToken is a stored refresh token. Only the SHA256 of the token
// ever touches the database.
type RefreshToken struct {
	ID        string       `db:"id"`
	UserID    string       `db:"user_id"`
	TokenHash string       `db:"token_hash"`
	TokenID   string       `db:"token_id"`
	ExpiresAt time.Time    `db:"expires_at"`
	CreatedAt time.Time    `db:"created_at"`
	RevokedAt sql.NullTime `db:"revoked_at"`
}

type refreshTokenRepository struct {
	db *DB
}

// NewRefreshTokenRepository creates a new refresh token repository.
func NewRefreshTokenRepository(db *DB) RefreshTokenRepository {
	return &refreshTokenRepository{db: db}
}

// Create stores a new refresh token.
func (r *refreshTokenRepository) Create(userID, tokenID, token string, expiresAt time.Time) error {
	query := r.db.Rebind(`
		INSERT INTO refresh_tokens (id, user_id, token_hash, token_id, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`)
	_, err := r.db.Exec(query, uuid.New().String(), userID, hashToken(token), tokenID, expiresAt, time.Now())
	if err != nil {
		return fmt.Errorf("failed to create refresh token: %w", err)
	}
	return nil
}

// ValidateAndGet returns the stored token row if token is live.
func (r *refreshTokenRepository) ValidateAndGet(token string) (*RefreshToken, error) {
	query := r.db.Rebind(`
		SELECT id, user_id, token_hash, token_id, expires_at, created_at, revoked_at
		FROM refresh_tokens
		WHERE token_hash = ?
		  AND expires_at > CURRENT_TIMESTAMP
		  AND revoked_at IS NULL`)

	var refreshToken RefreshToken
	err := r.db.Get(&refreshToken, query, hashToken(token))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("invalid or expired refresh token")
		}
		return nil, fmt.Errorf("failed to validate refresh token: %w", err)
	}
	return &refreshToken, nil
}

// Revoke marks a refresh token as revoked.
func (r *refreshTokenRepository) Revoke(tokenID string) error {
	query := r.db.Rebind(`
		UPDATE refresh_tokens
		SET revoked_at = CURRENT_TIMESTAMP
		WHERE token_id = ? AND revoked_at IS NULL`)

	result, err := r.db.Exec(query, tokenID)
	if err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("refresh token not found or already revoked")
	}
	return nil
}

// RevokeAllForUser revokes every live refresh token for a user.
func (r *refreshTokenRepository) RevokeAllForUser(userID string) error {
	query := r.db.Rebind(`
		UPDATE refresh_tokens
		SET revoked_at = CURRENT_TIMESTAMP
		WHERE user_id = ? AND revoked_at IS NULL`)

	if _, err := r.db.Exec(query, userID); err != nil {
		return fmt.Errorf("failed to revoke user's refresh tokens: %w", err)
	}
	return nil
}

// CleanupExpired removes expired and long-revoked refresh tokens.
func (r *refreshTokenRepository) CleanupExpired() error {
	query := `
		DELETE FROM refresh_tokens
		WHERE expires_at < CURRENT_TIMESTAMP
		   OR revoked_at < datetime('now', '-30 days')`
	if r.db.DriverName() == "postgres" {
		query = `
			DELETE FROM refresh_tokens
			WHERE expires_at < CURRENT_TIMESTAMP
			   OR revoked_at < CURRENT_TIMESTAMP - INTERVAL '30 days'`
	}

	if _, err := r.db.Exec(r.db.Rebind(query)); err != nil {
		return fmt.Errorf("failed to cleanup expired tokens: %w", err)
	}
	return nil
}

func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
