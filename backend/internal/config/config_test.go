package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfigJWTSecret = "a-very-long-secret-key-that-is-at-least-32-chars"

func clearConfigEnv(t *testing.T) {
	t.Helper()
	envVars := []string{
		"PORT", "ENV",
		"DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME", "DB_SSLMODE",
		"DB_MAX_OPEN_CONNS", "DB_MAX_IDLE_CONNS", "DB_MAX_LIFETIME",
		"REDIS_HOST", "REDIS_PORT", "REDIS_PASSWORD", "REDIS_DB",
		"JWT_SECRET", "ACCESS_TOKEN_DURATION", "REFRESH_TOKEN_DURATION", "BCRYPT_COST",
		"ENGINE_DEFAULT_RNG_SOURCE", "ENGINE_SNAPSHOT_TTL", "ENGINE_MAX_ENCOUNTER_CONCURRENCY",
	}
	for _, key := range envVars {
		original := os.Getenv(key)
		require.NoError(t, os.Unsetenv(key))
		if original != "" {
			key, original := key, original
			t.Cleanup(func() { os.Setenv(key, original) })
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "development", cfg.Server.Environment)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "combatsim", cfg.Database.User)
	assert.Equal(t, "combatsim", cfg.Database.DatabaseName)
	assert.Equal(t, 5*time.Minute, cfg.Database.MaxLifetime)

	assert.Equal(t, "localhost", cfg.Redis.Host)
	assert.Equal(t, 6379, cfg.Redis.Port)

	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTokenDuration)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.RefreshTokenDuration)
	assert.Equal(t, 10, cfg.Auth.BcryptCost)

	assert.Equal(t, int64(0), cfg.Engine.DefaultRNGSource)
	assert.Equal(t, 30*time.Minute, cfg.Engine.SnapshotTTL)
	assert.Equal(t, 8, cfg.Engine.MaxEncounterConcurrency)
}

func TestLoadFromEnvironment(t *testing.T) {
	clearConfigEnv(t)

	require.NoError(t, os.Setenv("PORT", "3000"))
	require.NoError(t, os.Setenv("DB_HOST", "db.internal"))
	require.NoError(t, os.Setenv("DB_PORT", "5433"))
	require.NoError(t, os.Setenv("JWT_SECRET", testConfigJWTSecret))
	require.NoError(t, os.Setenv("ENGINE_DEFAULT_RNG_SOURCE", "1234"))
	require.NoError(t, os.Setenv("ENGINE_SNAPSHOT_TTL", "2h"))
	require.NoError(t, os.Setenv("ENGINE_MAX_ENCOUNTER_CONCURRENCY", "4"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.Equal(t, testConfigJWTSecret, cfg.Auth.JWTSecret)
	assert.Equal(t, int64(1234), cfg.Engine.DefaultRNGSource)
	assert.Equal(t, 2*time.Hour, cfg.Engine.SnapshotTTL)
	assert.Equal(t, 4, cfg.Engine.MaxEncounterConcurrency)
}

func TestLoadFallsBackOnBadValues(t *testing.T) {
	clearConfigEnv(t)

	require.NoError(t, os.Setenv("DB_PORT", "not-a-number"))
	require.NoError(t, os.Setenv("ENGINE_SNAPSHOT_TTL", "not-a-duration"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 30*time.Minute, cfg.Engine.SnapshotTTL)
}

func validTestConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: "8080", Environment: "development"},
		Database: DatabaseConfig{
			Host: "localhost", Port: 5432, User: "user", Password: "pass", DatabaseName: "db",
		},
		Auth: AuthConfig{
			JWTSecret:            testConfigJWTSecret,
			AccessTokenDuration:  15 * time.Minute,
			RefreshTokenDuration: 7 * 24 * time.Hour,
			BcryptCost:           10,
		},
		Engine: EngineConfig{SnapshotTTL: 30 * time.Minute, MaxEncounterConcurrency: 8},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"valid configuration", func(c *Config) {}, ""},
		{"missing server port", func(c *Config) { c.Server.Port = "" }, "server port is required"},
		{"missing database host", func(c *Config) { c.Database.Host = "" }, "database host is required"},
		{"missing database user", func(c *Config) { c.Database.User = "" }, "database user is required"},
		{"missing database name", func(c *Config) { c.Database.DatabaseName = "" }, "database name is required"},
		{"missing JWT secret", func(c *Config) { c.Auth.JWTSecret = "" }, "JWT secret must be set"},
		{"default JWT secret rejected", func(c *Config) {
			c.Auth.JWTSecret = "your-secret-key-change-this-in-production"
		}, "JWT secret must be set"},
		{"bad bcrypt cost", func(c *Config) { c.Auth.BcryptCost = 3 }, "bcrypt cost must be between 4 and 31"},
		{"zero engine concurrency", func(c *Config) { c.Engine.MaxEncounterConcurrency = 0 }, "engine concurrency must be at least 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validTestConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.errMsg)
			}
		})
	}
}
