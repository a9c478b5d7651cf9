package cache

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/dndsim/combat-engine/backend/internal/config"
	"github.com/dndsim/combat-engine/backend/pkg/logger"
)

// RedisClient wraps the redis client. The only cache in this service is
// the encounter-snapshot read-through (see EncounterSnapshotCache); Redis
// is strictly an optimization and every caller must survive it being
// down.
type RedisClient struct {
	client *redis.Client
	logger *logger.Logger
}

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(cfg *config.RedisConfig, log *logger.Logger) (*RedisClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,

		PoolSize:        50,
		MinIdleConns:    10,
		MaxRetries:      3,
		DialTimeout:     5 * time.Second,
		ReadTimeout:     3 * time.Second,
		WriteTimeout:    3 * time.Second,
		PoolTimeout:     4 * time.Second,
		ConnMaxIdleTime: 5 * time.Minute,
		ConnMaxLifetime: 30 * time.Minute,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if log != nil {
		log.Info().
			Str("host", cfg.Host).
			Int("port", cfg.Port).
			Int("db", cfg.DB).
			Msg("Connected to Redis")
	}
	return &RedisClient{client: client, logger: log}, nil
}

// Close closes the Redis connection.
func (rc *RedisClient) Close() error {
	return rc.client.Close()
}

// Ping checks if Redis is accessible.
func (rc *RedisClient) Ping(ctx context.Context) error {
	return rc.client.Ping(ctx).Err()
}

// Get retrieves a value; a missing key returns "" with no error.
func (rc *RedisClient) Get(ctx context.Context, key string) (string, error) {
	val, err := rc.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil && rc.logger != nil {
		rc.logger.WithContext(ctx).Debug().Str("key", key).Err(err).Msg("redis GET failed")
	}
	return val, err
}

// Set stores a value with an expiration.
func (rc *RedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	err := rc.client.Set(ctx, key, value, expiration).Err()
	if err != nil && rc.logger != nil {
		rc.logger.WithContext(ctx).Debug().Str("key", key).Err(err).Msg("redis SET failed")
	}
	return err
}

// Delete removes keys.
func (rc *RedisClient) Delete(ctx context.Context, keys ...string) error {
	return rc.client.Del(ctx, keys...).Err()
}

// Cache namespaces a RedisClient under a key prefix with a default
// expiry.
type Cache struct {
	client        *RedisClient
	defaultExpiry time.Duration
	keyPrefix     string
}

// NewCache creates a namespaced cache.
func NewCache(client *RedisClient, keyPrefix string, defaultExpiry time.Duration) *Cache {
	return &Cache{client: client, keyPrefix: keyPrefix, defaultExpiry: defaultExpiry}
}

func (c *Cache) makeKey(key string) string {
	if c.keyPrefix != "" {
		return fmt.Sprintf("%s:%s", c.keyPrefix, key)
	}
	return key
}

// Get retrieves a cached value.
func (c *Cache) Get(ctx context.Context, key string) (string, error) {
	return c.client.Get(ctx, c.makeKey(key))
}

// Set stores a value with the cache's default expiry.
func (c *Cache) Set(ctx context.Context, key string, value interface{}) error {
	return c.client.Set(ctx, c.makeKey(key), value, c.defaultExpiry)
}

// Delete removes a value.
func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.client.Delete(ctx, c.makeKey(key))
}
