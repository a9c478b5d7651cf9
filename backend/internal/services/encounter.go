package services

import (
	"context"
	"fmt"

	"github.com/dndsim/combat-engine/backend/internal/database"
	"github.com/dndsim/combat-engine/backend/internal/engine"
	"github.com/dndsim/combat-engine/backend/internal/models"
	"github.com/dndsim/combat-engine/backend/pkg/logger"
)

// EncounterService owns encounter lifecycle as the API sees it: metadata
// rows, ownership checks, and the bridge between roster assembly and the
// pure rules engine. Rules semantics stay entirely inside
// EncounterEngineService / internal/engine.
type EncounterService struct {
	encounters database.EncounterRepository
	engine     *EncounterEngineService
}

func NewEncounterService(encounters database.EncounterRepository, engineSvc *EncounterEngineService) *EncounterService {
	return &EncounterService{encounters: encounters, engine: engineSvc}
}

// Create registers a new encounter for ownerID and persists its initial
// (empty-roster) engine snapshot.
func (s *EncounterService) Create(ctx context.Context, ownerID string, req models.CreateEncounterRequest) (*models.Encounter, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("encounter name is required")
	}

	state := s.engine.NewEncounterState(req.Seed)

	enc := &models.Encounter{
		Name:    req.Name,
		OwnerID: ownerID,
		Seed:    state.RNGSeed,
	}
	if err := s.encounters.Create(ctx, enc); err != nil {
		return nil, err
	}
	if err := s.engine.StartEncounter(ctx, enc.ID, state); err != nil {
		return nil, err
	}

	logger.Info().
		Str("encounter_id", enc.ID).
		Str("owner_id", ownerID).
		Int64("seed", enc.Seed).
		Msg("Encounter created")
	return enc, nil
}

// Get returns encounter metadata.
func (s *EncounterService) Get(ctx context.Context, id string) (*models.Encounter, error) {
	return s.encounters.GetByID(ctx, id)
}

// ListByOwner returns an owner's encounters.
func (s *EncounterService) ListByOwner(ctx context.Context, ownerID string) ([]*models.Encounter, error) {
	return s.encounters.ListByOwner(ctx, ownerID)
}

// Snapshot returns the raw engine snapshot envelope for an encounter.
func (s *EncounterService) Snapshot(ctx context.Context, id string) ([]byte, error) {
	return s.engine.Snapshot(ctx, id)
}

// AddCombatant puts a combatant on the roster of a setup-phase
// encounter.
func (s *EncounterService) AddCombatant(ctx context.Context, encounterID string, ownerID string, c *engine.Combatant) error {
	if err := s.authorize(ctx, encounterID, ownerID); err != nil {
		return err
	}
	return s.engine.ModifyState(ctx, encounterID, func(state *engine.EncounterState) error {
		if state.CombatStarted {
			return fmt.Errorf("roster is locked once combat has started")
		}
		state.AddCombatant(c)
		return nil
	})
}

// SubmitCommand authorizes and applies one command, then advances the
// metadata lifecycle off the events: CombatStarted flips the row to
// active. The finer phases stay inside the engine state.
func (s *EncounterService) SubmitCommand(ctx context.Context, encounterID, userID string, cmd engine.Command) ([]engine.Event, error) {
	if err := s.authorize(ctx, encounterID, userID); err != nil {
		return nil, err
	}

	events, err := s.engine.ApplyCommand(ctx, encounterID, cmd)
	if err != nil {
		return nil, err
	}

	for _, e := range events {
		if e.Type == engine.EvtCombatStarted {
			if err := s.encounters.UpdateStatus(ctx, encounterID, models.EncounterStatusActive); err != nil {
				logger.Warn().Err(err).Str("encounter_id", encounterID).Msg("failed to mark encounter active")
			}
		}
	}
	return events, nil
}

// Finish marks an encounter finished (the GM calling it, typically after
// one side is down).
func (s *EncounterService) Finish(ctx context.Context, encounterID, userID string) error {
	if err := s.authorize(ctx, encounterID, userID); err != nil {
		return err
	}
	return s.encounters.UpdateStatus(ctx, encounterID, models.EncounterStatusFinished)
}

func (s *EncounterService) authorize(ctx context.Context, encounterID, userID string) error {
	enc, err := s.encounters.GetByID(ctx, encounterID)
	if err != nil {
		return err
	}
	if enc.OwnerID != userID {
		return fmt.Errorf("encounter is owned by another user")
	}
	return nil
}
