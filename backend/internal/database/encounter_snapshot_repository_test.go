package database

import (
	"context"
	"database/sql"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func newEncounterSnapshotTestDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	db := &DB{DB: sqlx.NewDb(mockDB, "sqlmock")}
	return db, mock
}

func TestEncounterSnapshotRepository_Put(t *testing.T) {
	db, mock := newEncounterSnapshotTestDB(t)
	repo := NewEncounterSnapshotRepository(db)

	mock.ExpectExec(`INSERT INTO encounter_snapshots`).
		WithArgs("enc-1", 1, uint64(7), []byte(`{"schema_version":1}`)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Put(context.Background(), "enc-1", 1, 7, []byte(`{"schema_version":1}`))
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEncounterSnapshotRepository_Get(t *testing.T) {
	db, mock := newEncounterSnapshotTestDB(t)
	repo := NewEncounterSnapshotRepository(db)

	rows := sqlmock.NewRows([]string{"snapshot"}).AddRow([]byte(`{"schema_version":1}`))
	mock.ExpectQuery(`SELECT snapshot FROM encounter_snapshots WHERE encounter_id = \?`).
		WithArgs("enc-1").
		WillReturnRows(rows)

	got, err := repo.Get(context.Background(), "enc-1")
	require.NoError(t, err)
	require.JSONEq(t, `{"schema_version":1}`, string(got))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEncounterSnapshotRepository_Get_NotFound(t *testing.T) {
	db, mock := newEncounterSnapshotTestDB(t)
	repo := NewEncounterSnapshotRepository(db)

	mock.ExpectQuery(`SELECT snapshot FROM encounter_snapshots WHERE encounter_id = \?`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "missing")
	require.ErrorIs(t, err, ErrSnapshotNotFound)
}

func TestEncounterSnapshotRepository_Delete(t *testing.T) {
	db, mock := newEncounterSnapshotTestDB(t)
	repo := NewEncounterSnapshotRepository(db)

	mock.ExpectExec(`DELETE FROM encounter_snapshots WHERE encounter_id = \?`).
		WithArgs("enc-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Delete(context.Background(), "enc-1")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
