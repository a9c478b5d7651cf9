package handlers

import (
	"github.com/dndsim/combat-engine/backend/internal/auth"
	"github.com/dndsim/combat-engine/backend/internal/database"
	"github.com/dndsim/combat-engine/backend/internal/services"
	"github.com/dndsim/combat-engine/backend/internal/websocket"
	"github.com/dndsim/combat-engine/backend/pkg/dice"
)

// Handlers bundles every HTTP handler's dependencies.
type Handlers struct {
	users           *services.UserService
	refreshTokens   *services.RefreshTokenService
	encounters      *services.EncounterService
	encounterEngine *services.EncounterEngineService
	websocketHub    *websocket.Hub
	roller          *dice.Roller
	jwtManager      *auth.JWTManager
	db              *database.DB
}

// New creates the handler bundle.
func New(svc *services.Services, hub *websocket.Hub) *Handlers {
	return &Handlers{
		users:           svc.Users,
		refreshTokens:   svc.RefreshTokens,
		encounters:      svc.Encounters,
		encounterEngine: svc.EncounterEngine,
		websocketHub:    hub,
		roller:          dice.NewRoller(),
		jwtManager:      svc.JWTManager,
		db:              svc.DB,
	}
}
