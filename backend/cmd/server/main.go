package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"

	_ "github.com/dndsim/combat-engine/backend/docs"
	"github.com/dndsim/combat-engine/backend/internal/auth"
	"github.com/dndsim/combat-engine/backend/internal/cache"
	"github.com/dndsim/combat-engine/backend/internal/config"
	"github.com/dndsim/combat-engine/backend/internal/database"
	"github.com/dndsim/combat-engine/backend/internal/handlers"
	"github.com/dndsim/combat-engine/backend/internal/jobs"
	"github.com/dndsim/combat-engine/backend/internal/routes"
	"github.com/dndsim/combat-engine/backend/internal/services"
	"github.com/dndsim/combat-engine/backend/internal/websocket"
	"github.com/dndsim/combat-engine/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	isDevelopment := cfg.Server.Environment == "development"
	logger.Init(logger.Config{
		Level:  "info",
		Pretty: isDevelopment,
	})
	log := logger.GetLogger()

	if err := cfg.Validate(); err != nil {
		if isDevelopment {
			log.Warn().Err(err).Msg("configuration incomplete, continuing in development mode")
		} else {
			log.Fatal().Err(err).Msg("invalid configuration")
		}
	}

	db, repos, err := database.Initialize(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer db.Close()
	db.SetLogger(log)

	// Redis is a read-through snapshot cache only; a failed connection is
	// a warning, never fatal -- Postgres stays authoritative.
	var snapshotCache *cache.EncounterSnapshotCache
	redisClient, err := cache.NewRedisClient(&cfg.Redis, log)
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, snapshot cache disabled")
	} else {
		defer redisClient.Close()
		snapshotCache = cache.NewEncounterSnapshotCacheWithTTL(redisClient, cfg.Engine.SnapshotTTL)
	}

	jwtManager := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenDuration, cfg.Auth.RefreshTokenDuration)
	authMiddleware := auth.NewMiddleware(jwtManager)
	websocket.SetJWTManager(jwtManager)
	hub := websocket.GetHub()

	engineService := services.NewEncounterEngineServiceWithRNGSource(
		repos.EncounterSnapshots, snapshotCache, cfg.Engine.DefaultRNGSource)
	svc := &services.Services{
		DB:              db,
		Users:           services.NewUserService(repos.Users),
		RefreshTokens:   services.NewRefreshTokenService(repos.RefreshTokens, jwtManager),
		EncounterEngine: engineService,
		Encounters:      services.NewEncounterService(repos.Encounters, engineService),
		JWTManager:      jwtManager,
		Config:          cfg,
	}

	// Background workers: simulation batches and token pruning. The queue
	// shares Redis with the cache, so it is skipped when Redis is down.
	var queue *jobs.JobQueue
	if redisClient != nil {
		queue, err = jobs.NewJobQueueWithConcurrency(&cfg.Redis, log, cfg.Engine.MaxEncounterConcurrency)
		if err != nil {
			log.Warn().Err(err).Msg("job queue unavailable")
		} else {
			jobs.NewEncounterSimulationHandler(log).RegisterEncounterSimulation(queue)
			jobs.NewTokenCleanupHandler(repos.RefreshTokens, log).RegisterTokenCleanup(queue)
			if err := queue.Start(); err != nil {
				log.Warn().Err(err).Msg("failed to start job queue")
			}
		}
	}

	h := handlers.New(svc, hub)
	router := routes.Setup(&routes.Config{
		Handlers:       h,
		AuthMiddleware: authMiddleware,
		Logger:         log,
		IsDevelopment:  isDevelopment,
	})

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
	}).Handler(router)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      corsHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("combat simulator listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if queue != nil {
		if err := queue.Stop(); err != nil {
			log.Warn().Err(err).Msg("job queue shutdown failed")
		}
	}
	if err := hub.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("websocket hub shutdown failed")
	}
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
}
