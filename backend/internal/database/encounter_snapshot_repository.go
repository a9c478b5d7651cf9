package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// EncounterSnapshotRepository persists the output of engine.Encode: the
// event-sourced engine package never touches this package directly, but
// the hosting layer stores its snapshots here so a reconnecting client or
// a restarted process can resume an encounter without replaying every
// command from scratch.
type EncounterSnapshotRepository struct {
	db *DB
}

func NewEncounterSnapshotRepository(db *DB) *EncounterSnapshotRepository {
	return &EncounterSnapshotRepository{db: db}
}

// ErrSnapshotNotFound is returned by Get when no snapshot has been stored
// yet for the given encounter id.
var ErrSnapshotNotFound = errors.New("database: encounter snapshot not found")

// Put upserts the latest snapshot for an encounter. schemaVersion and seq
// are pulled out of the envelope so callers can filter/order without
// re-parsing the JSONB blob.
func (r *EncounterSnapshotRepository) Put(ctx context.Context, encounterID string, schemaVersion int, seq uint64, snapshot []byte) error {
	query := `
		INSERT INTO encounter_snapshots (encounter_id, schema_version, seq, snapshot, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (encounter_id) DO UPDATE SET
			schema_version = EXCLUDED.schema_version,
			seq            = EXCLUDED.seq,
			snapshot       = EXCLUDED.snapshot,
			updated_at     = CURRENT_TIMESTAMP`
	_, err := r.db.ExecContextRebind(ctx, query, encounterID, schemaVersion, seq, snapshot)
	if err != nil {
		return fmt.Errorf("failed to store encounter snapshot: %w", err)
	}
	return nil
}

// Get returns the raw snapshot bytes for an encounter, ready to be passed
// straight to engine.Decode.
func (r *EncounterSnapshotRepository) Get(ctx context.Context, encounterID string) ([]byte, error) {
	query := `SELECT snapshot FROM encounter_snapshots WHERE encounter_id = ?`
	var snapshot []byte
	err := r.db.QueryRowContextRebind(ctx, query, encounterID).Scan(&snapshot)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load encounter snapshot: %w", err)
	}
	return snapshot, nil
}

// Delete removes a stored snapshot, e.g. once an encounter reaches
// PhaseFinished and its events have been archived elsewhere.
func (r *EncounterSnapshotRepository) Delete(ctx context.Context, encounterID string) error {
	query := `DELETE FROM encounter_snapshots WHERE encounter_id = ?`
	_, err := r.db.ExecContextRebind(ctx, query, encounterID)
	if err != nil {
		return fmt.Errorf("failed to delete encounter snapshot: %w", err)
	}
	return nil
}
