package database

import (
	"context"
	"time"

	"github.com/dndsim/combat-engine/backend/internal/models"
)

// UserRepository defines the interface for account data operations.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
}

// RefreshTokenRepository defines the interface for refresh token
// persistence.
type RefreshTokenRepository interface {
	Create(userID, tokenID string, token string, expiresAt time.Time) error
	ValidateAndGet(token string) (*RefreshToken, error)
	Revoke(tokenID string) error
	RevokeAllForUser(userID string) error
	CleanupExpired() error
}

// EncounterRepository defines the interface for encounter metadata rows.
// The rules state itself lives in EncounterSnapshotRepository; this one
// only tracks ownership and lifecycle.
type EncounterRepository interface {
	Create(ctx context.Context, enc *models.Encounter) error
	GetByID(ctx context.Context, id string) (*models.Encounter, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*models.Encounter, error)
	UpdateStatus(ctx context.Context, id, status string) error
	Delete(ctx context.Context, id string) error
}

// Repositories aggregates the service's repositories.
type Repositories struct {
	Users              UserRepository
	RefreshTokens      RefreshTokenRepository
	Encounters         EncounterRepository
	EncounterSnapshots *EncounterSnapshotRepository
}
