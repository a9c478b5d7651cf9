package routes

import (
	"github.com/gorilla/mux"

	"github.com/dndsim/combat-engine/backend/internal/middleware"
)

// registerAuthRoutes mounts registration, login and token refresh, all
// behind the tight auth rate limiter.
func registerAuthRoutes(api *mux.Router, cfg *Config) {
	limiter := middleware.AuthRateLimiter()

	authRouter := api.PathPrefix("/auth").Subrouter()
	authRouter.Use(limiter.Middleware())

	authRouter.HandleFunc("/register", cfg.Handlers.Register).Methods("POST")
	authRouter.HandleFunc("/login", cfg.Handlers.Login).Methods("POST")
	authRouter.HandleFunc("/refresh", cfg.Handlers.RefreshToken).Methods("POST")
}
