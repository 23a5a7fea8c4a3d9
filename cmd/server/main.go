package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/physqgen-backend/internal/config"
	"github.com/stemsi/physqgen-backend/internal/database"
	"github.com/stemsi/physqgen-backend/internal/handler"
	"github.com/stemsi/physqgen-backend/internal/logger"
	"github.com/stemsi/physqgen-backend/internal/repository"
	"github.com/stemsi/physqgen-backend/internal/router"
	"github.com/stemsi/physqgen-backend/internal/service"
	"github.com/stemsi/physqgen-backend/internal/validator"
	"github.com/stemsi/physqgen-backend/internal/worker"
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
		Msg("Starting physics question server")

	validator.Setup()

	// ─── Load Question Set ─────────────────────────────────────────────
	// Refuse to start on a bad set rather than failing every login later.
	questions, err := config.LoadQuestionSet(cfg.QuestionConfigDir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", cfg.QuestionConfigDir).Msg("Failed to load question set")
	}
	log.Info().Str("set", questions.Name).Int("questions", len(questions.Questions)).Msg("Question set loaded")

	if cfg.AdminPasswordHash == "" {
		log.Warn().Msg("ADMIN_PASSWORD_HASH is empty, admin login is disabled")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	sessionRepo := repository.NewSessionRepository(pool)
	attemptRepo := repository.NewAttemptRepository(pool)
	dashboardRepo := repository.NewDashboardRepository(pool)
	progressStore := repository.NewProgressStore(rdb)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg)
	sessionService := service.NewSessionService(sessionRepo, progressStore, questions, cfg, log)
	adminService := service.NewAdminService(dashboardRepo, sessionRepo, progressStore)
	mediaService := service.NewMediaService(cfg)

	for _, name := range mediaService.MissingImages(questions) {
		log.Warn().Str("image", name).Msg("Question image not uploaded yet")
	}

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:      handler.NewAuthHandler(authService, sessionService, log),
		Session:   handler.NewSessionHandler(sessionService, log),
		WS:        handler.NewWSHandler(sessionService, log, cfg.AllowedOrigins),
		Admin:     handler.NewAdminHandler(adminService, sessionService, mediaService, log),
		Dashboard: handler.NewDashboardHandler(adminService, log),
		Media:     handler.NewMediaHandler(mediaService),
		Monitor:   handler.NewMonitorHandler(adminService, log),
		System:    handler.NewSystemHandler(pool, progressStore, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var workers sync.WaitGroup

	attemptWorker := worker.NewAttemptWorker(attemptRepo, rdb, log)
	completionWorker := worker.NewCompletionWorker(sessionRepo, rdb, log)

	workers.Add(2)
	go func() {
		defer workers.Done()
		attemptWorker.Start(workerCtx)
	}()
	go func() {
		defer workers.Done()
		completionWorker.Start(workerCtx)
	}()

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

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

	// 2. Stop background workers and wait for their queues to drain.
	workerCancel()
	workers.Wait()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
