package services

import (
	"github.com/dndsim/combat-engine/backend/internal/auth"
	"github.com/dndsim/combat-engine/backend/internal/config"
	"github.com/dndsim/combat-engine/backend/internal/database"
)

// Services aggregates the service layer handed to the HTTP handlers.
type Services struct {
	DB              *database.DB
	Users           *UserService
	RefreshTokens   *RefreshTokenService
	Encounters      *EncounterService
	EncounterEngine *EncounterEngineService
	JWTManager      *auth.JWTManager
	Config          *config.Config
}
