package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"flashdeck-backend/internal/config"
	"flashdeck-backend/internal/database"
	"flashdeck-backend/internal/handlers"
	"flashdeck-backend/internal/logger"
	"flashdeck-backend/internal/middleware"
	"flashdeck-backend/internal/repository"
	"flashdeck-backend/internal/router"
	"flashdeck-backend/internal/services"
	"flashdeck-backend/internal/websocket"
	"flashdeck-backend/internal/worker"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run migrations, the worker pool and the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.Setup(cfg.LogLevel, cfg.Env)
	log.Info("starting flashdeck backend", "env", cfg.Env, "provider", cfg.CompletionProvider)

	// ──── Storage ────
	if err := database.Migrate(ctx, cfg.DatabaseURL, "up"); err != nil {
		return fmt.Errorf("database migration failed: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("postgres connection failed: %w", err)
	}
	defer pool.Close()
	log.Info("postgres connected")

	redisClients, err := database.NewRedisClients(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("redis connection failed: %w", err)
	}
	defer redisClients.Close()
	log.Info("redis connected")

	// ──── Repositories ────
	userRepo := repository.NewUserRepo(pool)
	deckRepo := repository.NewDeckRepo(pool)
	flashcardRepo := repository.NewFlashcardRepo(pool)
	jobRepo := repository.NewJobRepo(pool)
	studyPassRepo := repository.NewStudyPassRepo(pool)

	// ──── Services ────
	completer, closeCompleter, err := newCompleter(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeCompleter()

	var verifier services.IdentityVerifier
	if cfg.GoogleClientID != "" {
		verifier = services.NewGoogleVerifier(cfg.GoogleClientID)
	}

	kv := services.NewRedisKV(redisClients.Main)
	queue := worker.NewRedisQueue(redisClients.Main)
	pubsub := websocket.NewRedisPubSub(redisClients.PubSub)

	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret, cfg.AccessTokenTTL)
	authService := services.NewAuthService(userRepo, kv, jwtAuth, verifier)
	deckService := services.NewDeckService(deckRepo, flashcardRepo, kv)
	fileExtract := services.NewFileExtractService()
	generationService := services.NewGenerationService(deckService, completer, fileExtract, services.NewYouTubeService())
	jobService := services.NewJobService(generationService, jobRepo, queue)
	studyService := services.NewStudyService(deckService, studyPassRepo, kv)

	// ──── Worker Pool ────
	workerPool := worker.NewPool(queue, jobRepo, generationService, pubsub, cfg.WorkerCount)
	workerPool.Start(ctx)

	// ──── HTTP ────
	wsHub := websocket.NewHub(jwtAuth, pubsub, cfg.FrontendURL)
	handler := router.New(ctx,
		jwtAuth,
		handlers.NewAuthHandler(authService),
		handlers.NewDeckHandler(deckService),
		handlers.NewGenerateHandler(generationService, jobService, fileExtract),
		handlers.NewStudyHandler(studyService),
		wsHub,
		cfg.FrontendURL,
	)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("http server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	wsHub.Close()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "error", err)
	}
	workerPool.Stop()
	log.Info("shutdown complete")
	return nil
}

func newCompleter(ctx context.Context, cfg *config.Config) (services.Completer, func(), error) {
	switch cfg.CompletionProvider {
	case "openai":
		slog.Info("completion provider ready", "provider", "openai", "model", cfg.OpenAIModel)
		return services.NewOpenAICompleter(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel), func() {}, nil
	default:
		gemini, err := services.NewGeminiCompleter(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiConcurrentReqs)
		if err != nil {
			return nil, nil, fmt.Errorf("gemini client initialization failed: %w", err)
		}
		slog.Info("completion provider ready", "provider", "gemini", "model", cfg.GeminiModel)
		return gemini, func() { gemini.Close() }, nil
	}
}
