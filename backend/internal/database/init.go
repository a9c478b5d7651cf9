package database

import (
	"fmt"
	"log"
	"time"

	"github.com/dndsim/combat-engine/backend/internal/config"
)

// Initialize connects to the database, runs migrations, and builds the
// repository set.
func Initialize(cfg *config.Config) (*DB, *Repositories, error) {
	dbConfig := Config{
		Host:         cfg.Database.Host,
		Port:         cfg.Database.Port,
		User:         cfg.Database.User,
		Password:     cfg.Database.Password,
		DatabaseName: cfg.Database.DatabaseName,
		SSLMode:      cfg.Database.SSLMode,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
		MaxLifetime:  cfg.Database.MaxLifetime,
	}

	// Retry with linear backoff: in a compose setup Postgres often comes
	// up a few seconds after the service.
	var db *DB
	var err error
	maxRetries := 5
	for i := 0; i < maxRetries; i++ {
		db, err = NewConnection(dbConfig)
		if err == nil {
			break
		}
		log.Printf("Failed to connect to database (attempt %d/%d): %v", i+1, maxRetries, err)
		if i < maxRetries-1 {
			time.Sleep(time.Duration(i+1) * time.Second)
		}
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database after %d attempts: %w", maxRetries, err)
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	repos := &Repositories{
		Users:              NewUserRepository(db),
		RefreshTokens:      NewRefreshTokenRepository(db),
		Encounters:         NewEncounterRepository(db),
		EncounterSnapshots: NewEncounterSnapshotRepository(db),
	}
	return db, repos, nil
}
