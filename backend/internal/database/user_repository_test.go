package database

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dndsim/combat-engine/backend/internal/models"
)

func newUserRepoForTest(t *testing.T) (UserRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewUserRepository(NewDBForTest(sqlx.NewDb(db, "sqlmock"))), mock
}

const selectUserPattern = `SELECT id, username, email, password_hash, role, created_at, updated_at FROM users WHERE `

func TestUserRepository_Create(t *testing.T) {
	repo, mock := newUserRepoForTest(t)

	t.Run("defaults the role to gm", func(t *testing.T) {
		user := &models.User{
			Username:     "gamemaster",
			Email:        "gm@example.com",
			PasswordHash: "$2a$10$hashedpassword",
		}

		mock.ExpectQuery(
			`INSERT INTO users \(username, email, password_hash, role\) VALUES \(\?, \?, \?, \?\) RETURNING id, created_at, updated_at`,
		).WithArgs(
			user.Username, user.Email, user.PasswordHash, "gm",
		).WillReturnRows(
			sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
				AddRow("user-123", time.Now(), time.Now()),
		)

		require.NoError(t, repo.Create(context.Background(), user))
		assert.Equal(t, "user-123", user.ID)
		assert.Equal(t, "gm", user.Role)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("maps username constraint violations", func(t *testing.T) {
		user := &models.User{Username: "existing", Email: "new@example.com", PasswordHash: "x", Role: "gm"}

		mock.ExpectQuery(`INSERT INTO users`).
			WillReturnError(assertableError("duplicate key value violates unique constraint users_username_key"))

		err := repo.Create(context.Background(), user)
		assert.Equal(t, models.ErrDuplicateUsername, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("maps email constraint violations", func(t *testing.T) {
		user := &models.User{Username: "new", Email: "existing@example.com", PasswordHash: "x", Role: "gm"}

		mock.ExpectQuery(`INSERT INTO users`).
			WillReturnError(assertableError("duplicate key value violates unique constraint users_email_key"))

		err := repo.Create(context.Background(), user)
		assert.Equal(t, models.ErrDuplicateEmail, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

type assertableError string

func (e assertableError) Error() string { return string(e) }

func userRows(id, username, email string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "username", "email", "password_hash", "role", "created_at", "updated_at",
	}).AddRow(id, username, email, "$2a$10$hashedpassword", "gm", time.Now(), time.Now())
}

func TestUserRepository_Getters(t *testing.T) {
	repo, mock := newUserRepoForTest(t)

	t.Run("by id", func(t *testing.T) {
		mock.ExpectQuery(selectUserPattern + `id = \?`).
			WithArgs("user-42").
			WillReturnRows(userRows("user-42", "gamemaster", "gm@example.com"))

		user, err := repo.GetByID(context.Background(), "user-42")
		require.NoError(t, err)
		assert.Equal(t, "user-42", user.ID)
		assert.Equal(t, "gm", user.Role)
	})

	t.Run("by username", func(t *testing.T) {
		mock.ExpectQuery(selectUserPattern + `username = \?`).
			WithArgs("gamemaster").
			WillReturnRows(userRows("user-42", "gamemaster", "gm@example.com"))

		user, err := repo.GetByUsername(context.Background(), "gamemaster")
		require.NoError(t, err)
		assert.Equal(t, "gamemaster", user.Username)
	})

	t.Run("by email", func(t *testing.T) {
		mock.ExpectQuery(selectUserPattern + `email = \?`).
			WithArgs("gm@example.com").
			WillReturnRows(userRows("user-42", "gamemaster", "gm@example.com"))

		user, err := repo.GetByEmail(context.Background(), "gm@example.com")
		require.NoError(t, err)
		assert.Equal(t, "gm@example.com", user.Email)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(selectUserPattern + `id = \?`).
			WithArgs("ghost").
			WillReturnError(sql.ErrNoRows)

		user, err := repo.GetByID(context.Background(), "ghost")
		assert.Equal(t, models.ErrUserNotFound, err)
		assert.Nil(t, user)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Update(t *testing.T) {
	repo, mock := newUserRepoForTest(t)

	user := &models.User{ID: "user-123", Username: "renamed", Email: "new@example.com", PasswordHash: "y"}

	t.Run("successful update", func(t *testing.T) {
		mock.ExpectQuery(
			`UPDATE users SET username = \?, email = \?, password_hash = \?, updated_at = CURRENT_TIMESTAMP WHERE id = \? RETURNING updated_at`,
		).WithArgs(user.Username, user.Email, user.PasswordHash, user.ID).
			WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(time.Now()))

		assert.NoError(t, repo.Update(context.Background(), user))
	})

	t.Run("user not found", func(t *testing.T) {
		mock.ExpectQuery(`UPDATE users SET`).WillReturnError(sql.ErrNoRows)
		assert.Equal(t, models.ErrUserNotFound, repo.Update(context.Background(), user))
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Delete(t *testing.T) {
	repo, mock := newUserRepoForTest(t)

	t.Run("successful delete", func(t *testing.T) {
		mock.ExpectExec(`DELETE FROM users WHERE id = \?`).
			WithArgs("user-123").
			WillReturnResult(sqlmock.NewResult(0, 1))
		assert.NoError(t, repo.Delete(context.Background(), "user-123"))
	})

	t.Run("user not found", func(t *testing.T) {
		mock.ExpectExec(`DELETE FROM users WHERE id = \?`).
			WithArgs("ghost").
			WillReturnResult(sqlmock.NewResult(0, 0))
		assert.Equal(t, models.ErrUserNotFound, repo.Delete(context.Background(), "ghost"))
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}
