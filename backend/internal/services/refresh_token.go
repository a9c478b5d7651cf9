package services

import (
	"fmt"

	"github.com/dndsim/combat-engine/backend/internal/auth"
	"github.com/dndsim/combat-engine/backend/internal/database"
	"github.com/dndsim/combat-engine/backend/pkg/logger"
)

// RefreshTokenService pairs JWT validation with the persisted token
// table, so a refresh token the server has revoked stops working even
// though its signature is still good. Periodic pruning of dead rows runs
// as a jobs.TokenCleanupHandler task, not here.
type RefreshTokenService struct {
	repo       database.RefreshTokenRepository
	jwtManager *auth.JWTManager
}

// NewRefreshTokenService creates a new refresh token service.
func NewRefreshTokenService(repo database.RefreshTokenRepository, jwtManager *auth.JWTManager) *RefreshTokenService {
	return &RefreshTokenService{repo: repo, jwtManager: jwtManager}
}

// Create stores a freshly minted refresh token.
func (s *RefreshTokenService) Create(userID, refreshToken string) error {
	claims, err := s.jwtManager.ValidateToken(refreshToken, auth.RefreshToken)
	if err != nil {
		return fmt.Errorf("invalid refresh token: %w", err)
	}
	return s.repo.Create(userID, claims.ID, refreshToken, claims.ExpiresAt.Time)
}

// RefreshAccessToken rotates a refresh token: validates it against both
// the database and its own signature, revokes it, and mints a new pair.
func (s *RefreshTokenService) RefreshAccessToken(refreshToken string) (*auth.TokenPair, string, error) {
	storedToken, err := s.repo.ValidateAndGet(refreshToken)
	if err != nil {
		return nil, "", err
	}

	claims, err := s.jwtManager.ValidateToken(refreshToken, auth.RefreshToken)
	if err != nil {
		return nil, "", err
	}

	if err := s.repo.Revoke(storedToken.TokenID); err != nil {
		logger.Warn().Err(err).Msg("failed to revoke old refresh token")
	}

	tokenPair, err := s.jwtManager.GenerateTokenPair(claims.UserID, claims.Username, claims.Email, claims.Role)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate new tokens: %w", err)
	}
	return tokenPair, storedToken.UserID, nil
}

// Revoke marks a refresh token as revoked.
func (s *RefreshTokenService) Revoke(tokenID string) error {
	return s.repo.Revoke(tokenID)
}

// RevokeAllForUser revokes all refresh tokens for a user.
func (s *RefreshTokenService) RevokeAllForUser(userID string) error {
	return s.repo.RevokeAllForUser(userID)
}
