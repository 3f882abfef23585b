package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/cache"
	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/catalog"
	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/config"
	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/database"
	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/gateway"
	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/handler"
	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/logger"
	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/result"
	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/router"
	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/service"
	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/session"
	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/validator"
	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting CETStrom Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to configure PostgreSQL pool")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Data Layer ─────────────────────────────────────────
	store := cache.NewRedisStore(rdb, log)
	gw := gateway.NewRemote(pool, store, log)

	// ─── Initialize Services ──────────────────────────────────────────
	catalogService := catalog.NewService(gw, store, log)
	registry := session.NewRegistry(catalogService, gw, store, log)
	resultService := result.NewService(gw, store, log)
	authService := service.NewAuthService(cfg, gw, rdb)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:   handler.NewAuthHandler(authService),
		Portal: handler.NewPortalHandler(catalogService, registry, resultService),
		Exam:   handler.NewExamHandler(catalogService),
		WS:     handler.NewWSHandler(registry, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	syncWorker := worker.NewSyncWorker(gw, store, log)
	go syncWorker.Start(workerCtx, cfg.SyncInterval)
	go registry.RunJanitor(workerCtx, time.Minute)

	// ─── Prewarm Caches ────────────────────────────────────────────────
	// Pull the exam catalog through the gateway once BEFORE accepting
	// traffic so the cached copies exist if connectivity drops later.
	if _, err := catalogService.ListExams(ctx, catalog.Filter{}); err != nil {
		log.Warn().Err(err).Msg("Catalog prewarm failed")
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, gw, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop the sync worker and the janitor; the worker makes a final
	// drain pass, the janitor abandons in-flight attempts.
	workerCancel()
	time.Sleep(2 * time.Second) // Allow workers to drain.

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
