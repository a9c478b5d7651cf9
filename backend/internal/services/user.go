package services

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/dndsim/combat-engine/backend/internal/database"
	"github.com/dndsim/combat-engine/backend/internal/models"
	"github.com/dndsim/combat-engine/backend/pkg/logger"
)

// UserService manages the accounts that run encounters. It owns password
// hashing and the registration/login flows; token minting lives with the
// auth handler.
type UserService struct {
	repo database.UserRepository
}

func NewUserService(repo database.UserRepository) *UserService {
	return &UserService{repo: repo}
}

// Register creates a new account. Every registered account gets the GM
// role -- there is no self-serve spectator registration; spectator
// access is a GM sharing a watch token.
func (s *UserService) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	if req.Username == "" {
		return nil, fmt.Errorf("username is required")
	}
	if req.Email == "" {
		return nil, fmt.Errorf("email is required")
	}
	if len(req.Password) < 8 {
		return nil, fmt.Errorf("password must be at least 8 characters long")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hashedPassword),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if err == models.ErrDuplicateUsername || err == models.ErrDuplicateEmail {
			return nil, err
		}
		logger.Error().Err(err).Str("username", req.Username).Msg("Failed to create user")
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	logger.Info().
		Str("user_id", user.ID).
		Str("username", user.Username).
		Msg("User registered")
	return user, nil
}

// Authenticate verifies credentials and returns the account. Failures
// are deliberately indistinguishable between unknown username and wrong
// password.
func (s *UserService) Authenticate(ctx context.Context, req models.LoginRequest) (*models.User, error) {
	user, err := s.repo.GetByUsername(ctx, req.Username)
	if err != nil {
		logger.Warn().Str("username", req.Username).Msg("Login attempt with unknown username")
		return nil, fmt.Errorf("invalid username or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		logger.Warn().Str("user_id", user.ID).Msg("Login attempt with wrong password")
		return nil, fmt.Errorf("invalid username or password")
	}
	return user, nil
}

// GetByID retrieves an account by id.
func (s *UserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	if id == "" {
		return nil, fmt.Errorf("user ID is required")
	}
	return s.repo.GetByID(ctx, id)
}

// ChangePassword verifies the old password and sets a new one.
func (s *UserService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("user not found: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)); err != nil {
		return fmt.Errorf("invalid password")
	}
	if len(newPassword) < 8 {
		return fmt.Errorf("password must be at least 8 characters long")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.PasswordHash = string(hashedPassword)
	return s.repo.Update(ctx, user)
}
