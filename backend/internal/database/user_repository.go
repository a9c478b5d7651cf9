package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dndsim/combat-engine/backend/internal/models"
)

// userRepository implements UserRepository.
type userRepository struct {
	db *DB
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db *DB) UserRepository {
	return &userRepository{db: db}
}

// Create inserts a new account. New accounts default to the GM role --
// every registered user may run encounters; spectator tokens are minted
// separately for watch-only links.
func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if user.Role == "" {
		user.Role = "gm"
	}

	// sqlite has no RETURNING support on our pinned driver, so ids and
	// timestamps are generated application-side there.
	if r.db.DriverName() == "sqlite3" {
		user.ID = uuid.New().String()
		user.CreatedAt = time.Now()
		user.UpdatedAt = time.Now()

		query := `
			INSERT INTO users (id, username, email, password_hash, role, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`
		_, err := r.db.ExecContextRebind(ctx, query,
			user.ID, user.Username, user.Email, user.PasswordHash, user.Role,
			user.CreatedAt, user.UpdatedAt)
		if err != nil {
			return mapUserConstraintError(err)
		}
		return nil
	}

	query := `
		INSERT INTO users (username, email, password_hash, role)
		VALUES (?, ?, ?, ?)
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContextRebind(ctx, query, user.Username, user.Email, user.PasswordHash, user.Role).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return mapUserConstraintError(err)
	}
	return nil
}

func mapUserConstraintError(err error) error {
	msg := err.Error()
	if strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE") {
		if strings.Contains(msg, "username") {
			return models.ErrDuplicateUsername
		}
		if strings.Contains(msg, "email") {
			return models.ErrDuplicateEmail
		}
	}
	return fmt.Errorf("failed to create user: %w", err)
}

const userColumns = `id, username, email, password_hash, role, created_at, updated_at`

func (r *userRepository) getOne(ctx context.Context, where string, arg interface{}) (*models.User, error) {
	var user models.User
	query := r.db.Rebind(`SELECT ` + userColumns + ` FROM users WHERE ` + where + ` = ?`)
	err := r.db.GetContext(ctx, &user, query, arg)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, models.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by %s: %w", where, err)
	}
	return &user, nil
}

// GetByID retrieves a user by ID.
func (r *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.getOne(ctx, "id", id)
}

// GetByUsername retrieves a user by username.
func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getOne(ctx, "username", username)
}

// GetByEmail retrieves a user by email.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, "email", email)
}

// Update updates a user's mutable fields.
func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users
		SET username = ?, email = ?, password_hash = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
		RETURNING updated_at`
	err := r.db.QueryRowContextRebind(ctx, query, user.Username, user.Email, user.PasswordHash, user.ID).
		Scan(&user.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.ErrUserNotFound
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// Delete deletes a user.
func (r *userRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContextRebind(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return models.ErrUserNotFound
	}
	return nil
}
