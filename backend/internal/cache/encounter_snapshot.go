package cache

import (
	"context"
	"fmt"
	"time"
)

// EncounterSnapshotCache fronts EncounterSnapshotRepository with a Redis
// copy of each encounter's latest snapshot, so a reconnecting client (or
// the next command on a hot encounter) can skip the Postgres round-trip.
// It never decides truth: Postgres remains authoritative and a cache miss
// always falls back to the repository.
type EncounterSnapshotCache struct {
	cache *Cache
	ttl   time.Duration
}

// DefaultEncounterSnapshotTTL matches how long a live encounter is
// expected to stay hot between commands before a client reconnect would
// rather hit the database than trust a stale copy.
const DefaultEncounterSnapshotTTL = 30 * time.Minute

func NewEncounterSnapshotCache(client *RedisClient) *EncounterSnapshotCache {
	return NewEncounterSnapshotCacheWithTTL(client, DefaultEncounterSnapshotTTL)
}

// NewEncounterSnapshotCacheWithTTL is NewEncounterSnapshotCache with an
// explicit TTL, e.g. sourced from config.Engine.SnapshotTTL.
func NewEncounterSnapshotCacheWithTTL(client *RedisClient, ttl time.Duration) *EncounterSnapshotCache {
	if ttl <= 0 {
		ttl = DefaultEncounterSnapshotTTL
	}
	return &EncounterSnapshotCache{
		cache: NewCache(client, "encounter:snapshot", ttl),
		ttl:   ttl,
	}
}

// Put stores the raw snapshot bytes (engine.Encode's output) for an
// encounter. Raw bytes are kept verbatim rather than JSON-wrapped: doing
// so would require an unnecessary decode/re-encode to serve a Get.
func (c *EncounterSnapshotCache) Put(ctx context.Context, encounterID string, snapshot []byte) error {
	if err := c.cache.Set(ctx, encounterID, snapshot); err != nil {
		return fmt.Errorf("cache: store encounter snapshot: %w", err)
	}
	return nil
}

// Get returns the cached snapshot bytes, or (nil, false, nil) on a cache miss.
func (c *EncounterSnapshotCache) Get(ctx context.Context, encounterID string) ([]byte, bool, error) {
	val, err := c.cache.Get(ctx, encounterID)
	if err != nil {
		return nil, false, fmt.Errorf("cache: load encounter snapshot: %w", err)
	}
	if val == "" {
		return nil, false, nil
	}
	return []byte(val), true, nil
}

// Invalidate drops the cached copy, e.g. after a snapshot write fails and
// the cache could be ahead of Postgres.
func (c *EncounterSnapshotCache) Invalidate(ctx context.Context, encounterID string) error {
	return c.cache.Delete(ctx, encounterID)
}
