package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/voxquiz/voxquiz-backend/internal/config"
	"github.com/voxquiz/voxquiz-backend/internal/database"
	"github.com/voxquiz/voxquiz-backend/internal/event"
	"github.com/voxquiz/voxquiz-backend/internal/handler"
	"github.com/voxquiz/voxquiz-backend/internal/logger"
	"github.com/voxquiz/voxquiz-backend/internal/repository"
	"github.com/voxquiz/voxquiz-backend/internal/router"
	"github.com/voxquiz/voxquiz-backend/internal/service"
	"github.com/voxquiz/voxquiz-backend/internal/validator"
	"github.com/voxquiz/voxquiz-backend/internal/worker"
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
		Msg("Starting VoxQuiz Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

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

	// ─── Connect to RabbitMQ (optional) ────────────────────────────────
	// Events are a best-effort side channel; the quiz runs fine without a
	// broker, so a missing AMQP_URL just disables publishing.
	var publisher *event.Publisher
	if cfg.AMQPURL != "" {
		publisher, err = event.NewPublisher(cfg.AMQPURL, log)
		if err != nil {
			log.Warn().Err(err).Msg("RabbitMQ unavailable, events disabled")
			publisher = nil
		} else {
			defer publisher.Close()
		}
	}

	// ─── Initialize Repositories ───────────────────────────────────────
	playerRepo := repository.NewPlayerRepository(pool)
	hostRepo := repository.NewHostRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)
	turnRepo := repository.NewSessionQuestionRepository(pool)
	timingRepo := repository.NewTimingEventRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, rdb)
	timingService := service.NewTimingService(timingRepo, log)
	recoveryService := service.NewRecoveryService(sessionRepo, turnRepo, cfg.SessionTimeout, log)
	leaderboardService := service.NewLeaderboardService(playerRepo, rdb, log)
	questionService := service.NewQuestionService(questionRepo, log)

	orchestrator := newOrchestrator(cfg, sessionRepo, turnRepo, questionRepo,
		timingService, recoveryService, leaderboardService, publisher, log)
	orchestrator.StartJanitor(ctx)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:     handler.NewAuthHandler(authService, playerRepo, hostRepo, log),
		Session:  handler.NewSessionHandler(orchestrator, sessionRepo, turnRepo, log),
		Question: handler.NewQuestionHandler(questionService, log),
		Voice:    handler.NewVoiceHandler(orchestrator, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	scoreWorker := worker.NewScoreWorker(pool, rdb, log)
	sweeperWorker := worker.NewSweeperWorker(sessionRepo, cfg.SessionTimeout, log)

	go scoreWorker.Start(workerCtx)
	go sweeperWorker.Start(workerCtx)

	// ─── Prewarm Leaderboard Cache ────────────────────────────────────
	// Rebuild the sorted set from PostgreSQL before accepting traffic so
	// ranks are never stale across a deploy.
	if err := leaderboardService.Rebuild(ctx, cfg.LeaderboardSize); err != nil {
		log.Warn().Err(err).Msg("Leaderboard prewarm failed")
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, cfg)

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

	// 2. Stop background workers and wait for queues to drain.
	workerCancel()
	time.Sleep(2 * time.Second) // Allow workers to drain.

	log.Info().Msg("Shutdown complete")
}

// newOrchestrator keeps the long constructor call out of main's flow.
func newOrchestrator(
	cfg *config.Config,
	sessionRepo *repository.SessionRepository,
	turnRepo *repository.SessionQuestionRepository,
	questionRepo *repository.QuestionRepository,
	timingService *service.TimingService,
	recoveryService *service.RecoveryService,
	leaderboardService *service.LeaderboardService,
	publisher *event.Publisher,
	log zerolog.Logger,
) *service.SessionOrchestrator {
	// A typed nil pointer inside an interface value is not nil, so the
	// no-broker case must pass a bare nil.
	if publisher == nil {
		return service.NewSessionOrchestrator(
			sessionRepo, turnRepo, questionRepo,
			timingService, recoveryService,
			leaderboardService, leaderboardService, nil,
			cfg.LeaderboardSize, cfg.SessionTimeout, log,
		)
	}
	return service.NewSessionOrchestrator(
		sessionRepo, turnRepo, questionRepo,
		timingService, recoveryService,
		leaderboardService, leaderboardService, publisher,
		cfg.LeaderboardSize, cfg.SessionTimeout, log,
	)
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
