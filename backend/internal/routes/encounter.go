package routes

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/dndsim/combat-engine/backend/internal/crdt"
	"github.com/dndsim/combat-engine/backend/internal/handlers"
	"github.com/dndsim/combat-engine/backend/internal/middleware"
	"github.com/dndsim/combat-engine/backend/internal/websocket"
)

// RegisterEncounterRoutes mounts the combat engine's HTTP surface. The
// command endpoint is a gin sub-handler wrapped in the same auth
// middleware every other authenticated route uses; gorilla and gin
// coexist by gin only ever owning that one path.
func RegisterEncounterRoutes(router *mux.Router, api *mux.Router, cfg *Config) {
	requireGM := cfg.AuthMiddleware.RequireGM()

	api.HandleFunc("/encounters",
		requireGM(cfg.Handlers.CreateEncounter)).Methods("POST")
	api.HandleFunc("/encounters",
		requireGM(cfg.Handlers.ListEncounters)).Methods("GET")
	api.HandleFunc("/encounters/{id}",
		cfg.AuthMiddleware.Authenticate(cfg.Handlers.GetEncounter)).Methods("GET")
	api.HandleFunc("/encounters/{id}/snapshot",
		cfg.AuthMiddleware.Authenticate(cfg.Handlers.GetEncounterSnapshot)).Methods("GET")
	api.HandleFunc("/encounters/{id}/combatants",
		requireGM(cfg.Handlers.AddCombatant)).Methods("POST")
	api.HandleFunc("/encounters/{id}/finish",
		requireGM(cfg.Handlers.FinishEncounter)).Methods("POST")

	// Command submission: gin binds and shape-validates the DTO, then the
	// engine's own validator rules on the command. Rate limited so a
	// runaway client script cannot spin the reducer.
	commandLimiter := middleware.CommandRateLimiter()
	ginRouter := handlers.NewEncounterCommandRouter(cfg.Handlers)
	api.PathPrefix("/encounters/{encounterId}/commands").Handler(
		commandLimiter.Middleware()(http.HandlerFunc(
			requireGM(func(w http.ResponseWriter, r *http.Request) {
				ginRouter.ServeHTTP(w, r)
			}),
		)),
	).Methods("POST")

	// Spectator event stream: one room per encounter, events fan out as
	// they are produced.
	router.HandleFunc("/ws/v1/encounters", websocket.HandleWebSocket)

	// Pre-combat roster collaborative editing (automerge sync). Only
	// meaningful before StartCombat; never touches internal/engine.
	router.HandleFunc("/ws/v1/encounters/roster", crdt.SyncHandler)
}
