package database

import "github.com/jmoiron/sqlx"

// NewDBForTest wraps an already-connected *sqlx.DB (typically backed by
// go-sqlmock or an in-memory sqlite connection) in a *DB with no config
// or logger attached. Exported so other packages' tests (e.g.
// services.EncounterEngineService's) can build a repository against a
// mock without duplicating DB's unexported fields.
func NewDBForTest(sqlxDB *sqlx.DB) *DB {
	return &DB{DB: sqlxDB}
}
