package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dndsim/combat-engine/backend/internal/models"
)

// encounterRepository implements EncounterRepository over the encounters
// metadata table.
type encounterRepository struct {
	db *DB
}

// NewEncounterRepository creates a new encounter metadata repository.
func NewEncounterRepository(db *DB) EncounterRepository {
	return &encounterRepository{db: db}
}

// Create inserts a new encounter row. The id is minted here (the engine
// never sees it -- encounter ids are a hosting concern).
func (r *encounterRepository) Create(ctx context.Context, enc *models.Encounter) error {
	if enc.ID == "" {
		enc.ID = uuid.New().String()
	}
	if enc.Status == "" {
		enc.Status = models.EncounterStatusSetup
	}
	enc.CreatedAt = time.Now()
	enc.UpdatedAt = enc.CreatedAt

	query := `
		INSERT INTO encounters (id, name, owner_id, seed, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContextRebind(ctx, query,
		enc.ID, enc.Name, enc.OwnerID, enc.Seed, enc.Status, enc.CreatedAt, enc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create encounter: %w", err)
	}
	return nil
}

const encounterColumns = `id, name, owner_id, seed, status, created_at, updated_at`

// GetByID retrieves one encounter row.
func (r *encounterRepository) GetByID(ctx context.Context, id string) (*models.Encounter, error) {
	var enc models.Encounter
	query := r.db.Rebind(`SELECT ` + encounterColumns + ` FROM encounters WHERE id = ?`)
	err := r.db.GetContext(ctx, &enc, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, models.ErrEncounterNotFound
		}
		return nil, fmt.Errorf("failed to get encounter: %w", err)
	}
	return &enc, nil
}

// ListByOwner returns an owner's encounters, newest first.
func (r *encounterRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.Encounter, error) {
	var encounters []*models.Encounter
	query := r.db.Rebind(`
		SELECT ` + encounterColumns + `
		FROM encounters
		WHERE owner_id = ?
		ORDER BY created_at DESC`)
	if err := r.db.SelectContext(ctx, &encounters, query, ownerID); err != nil {
		return nil, fmt.Errorf("failed to list encounters: %w", err)
	}
	return encounters, nil
}

// UpdateStatus moves an encounter through its lifecycle.
func (r *encounterRepository) UpdateStatus(ctx context.Context, id, status string) error {
	query := `
		UPDATE encounters
		SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`
	result, err := r.db.ExecContextRebind(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("failed to update encounter status: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return models.ErrEncounterNotFound
	}
	return nil
}

// Delete removes an encounter row; its snapshot goes with it via the
// foreign key cascade.
func (r *encounterRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContextRebind(ctx, `DELETE FROM encounters WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete encounter: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return models.ErrEncounterNotFound
	}
	return nil
}
