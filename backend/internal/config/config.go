package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the combat simulator service.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Engine   EngineConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Port        string
	Environment string
}

// DatabaseConfig holds database-related configuration.
type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	DatabaseName string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

// RedisConfig holds Redis-related configuration.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// AuthConfig holds authentication-related configuration.
type AuthConfig struct {
	JWTSecret            string
	AccessTokenDuration  time.Duration
	RefreshTokenDuration time.Duration
	BcryptCost           int
}

// EngineConfig holds configuration for the combat rules engine's hosting
// layer. internal/engine itself never reads config -- only cmd/server and
// the job workers consult these values, then pass plain arguments into
// the engine/service constructors.
type EngineConfig struct {
	// DefaultRNGSource seeds an encounter that wasn't given an explicit
	// seed by the caller. Zero means "derive one from the clock at
	// creation time".
	DefaultRNGSource int64
	// SnapshotTTL bounds how long the Redis cache keeps a live
	// encounter's latest snapshot before a reconnecting client has to
	// fall back to Postgres.
	SnapshotTTL time.Duration
	// MaxEncounterConcurrency bounds the worker pool internal/jobs uses
	// for SimulateEncounterBatch -- each worker owns exactly one
	// EncounterState at a time, never shared across goroutines.
	MaxEncounterConcurrency int
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.Server.Port = getEnv("PORT", "8080")
	cfg.Server.Environment = getEnv("ENV", "development")

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvAsInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "combatsim")
	cfg.Database.Password = getEnv("DB_PASSWORD", "combatsimpass")
	cfg.Database.DatabaseName = getEnv("DB_NAME", "combatsim")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxOpenConns = getEnvAsInt("DB_MAX_OPEN_CONNS", 25)
	cfg.Database.MaxIdleConns = getEnvAsInt("DB_MAX_IDLE_CONNS", 25)
	cfg.Database.MaxLifetime = getEnvAsDuration("DB_MAX_LIFETIME", 5*time.Minute)

	cfg.Redis.Host = getEnv("REDIS_HOST", "localhost")
	cfg.Redis.Port = getEnvAsInt("REDIS_PORT", 6379)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvAsInt("REDIS_DB", 0)

	cfg.Auth.JWTSecret = getEnv("JWT_SECRET", "your-secret-key-change-this-in-production")
	cfg.Auth.AccessTokenDuration = getEnvAsDuration("ACCESS_TOKEN_DURATION", 15*time.Minute)
	cfg.Auth.RefreshTokenDuration = getEnvAsDuration("REFRESH_TOKEN_DURATION", 7*24*time.Hour)
	cfg.Auth.BcryptCost = getEnvAsInt("BCRYPT_COST", 10)

	cfg.Engine.DefaultRNGSource = int64(getEnvAsInt("ENGINE_DEFAULT_RNG_SOURCE", 0))
	cfg.Engine.SnapshotTTL = getEnvAsDuration("ENGINE_SNAPSHOT_TTL", 30*time.Minute)
	cfg.Engine.MaxEncounterConcurrency = getEnvAsInt("ENGINE_MAX_ENCOUNTER_CONCURRENCY", 8)

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	strValue := getEnv(key, "")
	if strValue == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(strValue)
	if err != nil {
		return defaultValue
	}
	return intValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if strValue == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(strValue)
	if err != nil {
		return defaultValue
	}
	return duration
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}
	if c.Database.DatabaseName == "" {
		return fmt.Errorf("database name is required")
	}
	if c.Auth.JWTSecret == "" || c.Auth.JWTSecret == "your-secret-key-change-this-in-production" {
		return fmt.Errorf("JWT secret must be set to a secure value")
	}
	if c.Auth.AccessTokenDuration <= 0 {
		return fmt.Errorf("access token duration must be positive")
	}
	if c.Auth.RefreshTokenDuration <= 0 {
		return fmt.Errorf("refresh token duration must be positive")
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		return fmt.Errorf("bcrypt cost must be between 4 and 31")
	}
	if c.Engine.MaxEncounterConcurrency < 1 {
		return fmt.Errorf("engine concurrency must be at least 1")
	}
	return nil
}
