package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/dndsim/combat-engine/backend/pkg/logger"
)

// Config holds the database connection configuration. NewConnection always
// opens Postgres; a sqlite3 connection can only be wrapped through
// NewDBForTest.
type Config struct {
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

// DB wraps the sqlx connection. All repository queries are written with ?
// placeholders and rebound per driver, so the same repository code runs
// against Postgres and sqlite.
type DB struct {
	*sqlx.DB
	config Config
	logger *logger.Logger
}

// StdDB returns the underlying *sql.DB.
func (db *DB) StdDB() *sql.DB {
	return db.DB.DB
}

// NewConnection opens and pings a Postgres connection.
func NewConnection(cfg Config) (*DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DatabaseName, cfg.SSLMode)

	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.MaxLifetime)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: db, config: cfg}, nil
}

// SetLogger enables per-query debug logging.
func (db *DB) SetLogger(log *logger.Logger) {
	db.logger = log
}

func (db *DB) logQuery(ctx context.Context, query string, err error, duration time.Duration) {
	if db.logger == nil {
		return
	}
	const maxQueryLength = 200
	if len(query) > maxQueryLength {
		query = query[:maxQueryLength] + "..."
	}
	event := db.logger.WithContext(ctx).Debug().
		Str("query", query).
		Dur("duration", duration)
	if err != nil && err != sql.ErrNoRows {
		event.Err(err).Msg("database query failed")
		return
	}
	event.Msg("database query executed")
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.DB.Close()
}

// WithTx executes fn within a transaction, rolling back on error.
func (db *DB) WithTx(fn func(*sqlx.Tx) error) error {
	tx, err := db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("tx failed: %v, unable to rollback: %v", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ExecContextRebind executes a ?-placeholder query after rebinding it for
// the active driver.
func (db *DB) ExecContextRebind(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	rebound := db.Rebind(query)
	start := time.Now()
	result, err := db.DB.ExecContext(ctx, rebound, args...)
	db.logQuery(ctx, query, err, time.Since(start))
	return result, err
}

// QueryRowContextRebind executes a ?-placeholder single-row query after
// rebinding it for the active driver.
func (db *DB) QueryRowContextRebind(ctx context.Context, query string, args ...interface{}) *sql.Row {
	rebound := db.Rebind(query)
	start := time.Now()
	row := db.DB.QueryRowContext(ctx, rebound, args...)
	db.logQuery(ctx, query, nil, time.Since(start))
	return row
}
