package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dndsim/combat-engine/backend/internal/cache"
	"github.com/dndsim/combat-engine/backend/internal/database"
	"github.com/dndsim/combat-engine/backend/internal/engine"
)

// ErrEncounterNotFound is returned when no snapshot exists yet for an
// encounter id and the caller didn't ask to create one.
var ErrEncounterNotFound = errors.New("services: encounter has no stored state")

// EncounterEngineService hosts the pure internal/engine rules core: it
// owns loading an EncounterState from its latest snapshot (cache-first,
// falling back to Postgres), feeding it exactly one Command through
// engine.Apply, and persisting the result back out. The engine package
// itself never imports this one -- all the side effects the spec keeps
// out of the core (storage, caching, broadcast) live here instead,
// mirroring how EncounterService sits in front of the encounter
// repository rather than the repository reaching upward.
type EncounterEngineService struct {
	repo             *database.EncounterSnapshotRepository
	cache            *cache.EncounterSnapshotCache
	spells           *engine.SpellRegistry
	middlewares      []engine.RollMiddleware
	defaultRNGSource int64

	mu sync.Mutex
}

func NewEncounterEngineService(repo *database.EncounterSnapshotRepository, snapCache *cache.EncounterSnapshotCache) *EncounterEngineService {
	return NewEncounterEngineServiceWithRNGSource(repo, snapCache, 0)
}

// NewEncounterEngineServiceWithRNGSource is NewEncounterEngineService with
// an explicit fallback seed (config.Engine.DefaultRNGSource) for encounters
// NewEncounterState builds without a caller-supplied seed. Zero means
// "derive one from the clock", matching NewEncounterState's own zero-value
// handling.
func NewEncounterEngineServiceWithRNGSource(repo *database.EncounterSnapshotRepository, snapCache *cache.EncounterSnapshotCache, defaultRNGSource int64) *EncounterEngineService {
	return &EncounterEngineService{
		repo:             repo,
		cache:            snapCache,
		spells:           engine.NewDefaultSpellRegistry(),
		middlewares:      engine.DefaultRollMiddlewares(),
		defaultRNGSource: defaultRNGSource,
	}
}

// NewEncounterState builds an empty EncounterState using this service's
// spell registry, seeded explicitly by the caller or, if seed is zero,
// by the configured default RNG source, falling back further to the
// clock so an un-configured deployment still gets a usable seed rather
// than the always-zero determinism trap of seeding every encounter alike.
func (s *EncounterEngineService) NewEncounterState(seed int64) *engine.EncounterState {
	if seed == 0 {
		seed = s.defaultRNGSource
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return engine.NewEncounterState(seed, s.spells)
}

// StartEncounter persists a freshly built EncounterState (roster already
// assembled by the catalog/combatant-mapping layer, out of this
// package's scope) as the initial snapshot for encounterID.
func (s *EncounterEngineService) StartEncounter(ctx context.Context, encounterID string, state *engine.EncounterState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persist(ctx, encounterID, state, nil)
}

// ApplyCommand loads the latest state for encounterID, runs cmd through
// the reducer, persists the resulting state, and returns the events the
// call produced. The whole call is serialised behind a mutex: the engine
// itself is single-threaded by design, and this is where that
// single-thread-per-encounter guarantee is enforced for callers arriving
// over HTTP from arbitrary goroutines.
func (s *EncounterEngineService) ApplyCommand(ctx context.Context, encounterID string, cmd engine.Command) ([]engine.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.load(ctx, encounterID)
	if err != nil {
		return nil, err
	}

	events := engine.Apply(state, cmd, s.middlewares)

	if err := s.persist(ctx, encounterID, state, events); err != nil {
		return nil, err
	}
	return events, nil
}

// ModifyState loads the latest state, lets fn mutate it outside the
// reducer (hosting-level setup only -- roster assembly before combat),
// and persists the result. Never used once combat has started: past
// StartCombat, ApplyCommand is the only door into the state.
func (s *EncounterEngineService) ModifyState(ctx context.Context, encounterID string, fn func(*engine.EncounterState) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.load(ctx, encounterID)
	if err != nil {
		return err
	}
	if err := fn(state); err != nil {
		return err
	}
	return s.persist(ctx, encounterID, state, nil)
}

// Snapshot returns the raw snapshot envelope bytes currently stored for an
// encounter, e.g. for a reconnecting client to hydrate from.
func (s *EncounterEngineService) Snapshot(ctx context.Context, encounterID string) ([]byte, error) {
	if s.cache != nil {
		if raw, ok, err := s.cache.Get(ctx, encounterID); err == nil && ok {
			return raw, nil
		}
	}
	raw, err := s.repo.Get(ctx, encounterID)
	if errors.Is(err, database.ErrSnapshotNotFound) {
		return nil, ErrEncounterNotFound
	}
	return raw, err
}

func (s *EncounterEngineService) load(ctx context.Context, encounterID string) (*engine.EncounterState, error) {
	raw, err := s.Snapshot(ctx, encounterID)
	if err != nil {
		return nil, err
	}
	state, _, err := engine.Decode(raw, s.spells)
	if err != nil {
		return nil, fmt.Errorf("services: decode encounter %s: %w", encounterID, err)
	}
	return state, nil
}

func (s *EncounterEngineService) persist(ctx context.Context, encounterID string, state *engine.EncounterState, events []engine.Event) error {
	raw, err := engine.Encode(state, events)
	if err != nil {
		return fmt.Errorf("services: encode encounter %s: %w", encounterID, err)
	}
	if err := s.repo.Put(ctx, encounterID, 1, state.Seq, raw); err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.Put(ctx, encounterID, raw); err != nil {
			// Cache is a convenience layer; Postgres already has the
			// write, so a cache failure is not fatal to the command.
			return nil
		}
	}
	return nil
}
