package routes

import (
	"github.com/gorilla/mux"

	"github.com/dndsim/combat-engine/backend/internal/auth"
	"github.com/dndsim/combat-engine/backend/internal/handlers"
	"github.com/dndsim/combat-engine/backend/internal/middleware"
	"github.com/dndsim/combat-engine/backend/pkg/logger"
)

// Config carries everything route registration needs.
type Config struct {
	Handlers       *handlers.Handlers
	AuthMiddleware *auth.Middleware
	Logger         *logger.Logger
	IsDevelopment  bool
}

// Setup builds the full router: health endpoints at the root, the
// versioned API underneath /api/v1, and the websocket endpoints beside
// it.
func Setup(cfg *Config) *mux.Router {
	router := mux.NewRouter()

	router.Use(middleware.Recovery(cfg.Logger))
	router.Use(middleware.RequestLogger(cfg.Logger))
	router.Use(middleware.SecurityHeaders(cfg.IsDevelopment))

	router.HandleFunc("/health", cfg.Handlers.Health).Methods("GET")
	router.HandleFunc("/health/ready", cfg.Handlers.Readiness).Methods("GET")

	api := router.PathPrefix("/api/v1").Subrouter()

	registerAuthRoutes(api, cfg)
	registerDiceRoutes(api, cfg)
	RegisterEncounterRoutes(router, api, cfg)

	return router
}

func registerDiceRoutes(api *mux.Router, cfg *Config) {
	api.HandleFunc("/dice/roll",
		cfg.AuthMiddleware.Authenticate(cfg.Handlers.RollDice)).Methods("POST")
}
