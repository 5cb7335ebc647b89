package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dialogue-backend/internal/aibackend"
	"dialogue-backend/internal/cache"
	"dialogue-backend/internal/config"
	"dialogue-backend/internal/database"
	"dialogue-backend/internal/handlers"
	"dialogue-backend/internal/middleware"
	"dialogue-backend/internal/repository"
	"dialogue-backend/internal/router"
	"dialogue-backend/internal/services"
	"dialogue-backend/internal/websocket"
	"dialogue-backend/internal/worker"
)

func main() {
	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()

	logger, closeLog := config.SetupLogger(cfg.LogFile, config.ParseLogLevel(cfg.LogLevel))
	defer closeLog()
	slog.SetDefault(logger)
	logger.Info("starting dialogue backend", "env", cfg.Env, "reply_persistence", cfg.ReplyPersistence)

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(cfg.DatabaseURL)
	if err != nil {
		fatal(logger, "postgres connection failed", err)
	}
	defer pool.Close()
	logger.Info("postgres connected")

	// ──── Step 3: Initialize Redis Clients ────
	redisClients, err := database.NewRedisClients(cfg.RedisURL)
	if err != nil {
		fatal(logger, "redis connection failed", err)
	}
	defer redisClients.Close()
	logger.Info("redis connected")

	// ──── Step 4: Run Database Migrations ────
	if err := database.RunMigrations(pool, database.MigrationSource(cfg.MigrationsDir), logger); err != nil {
		fatal(logger, "database migration failed", err)
	}

	// ──── Initialize Repositories ────
	catalogRepo := repository.NewCatalogRepo(pool)
	dialogueRepo := repository.NewDialogueRepo(pool)
	jobRepo := repository.NewJobRepo(pool)
	store := cache.NewRedisStore(redisClients.Cache)

	// ──── Step 5: Initialize AI Clients ────
	clients := aibackend.Clients{
		History: aibackend.NewHistory(store, cfg.HistoryTTL, aibackend.DefaultMaxTurns),
		Timeout: cfg.AIRequestTimeout,
		Logger:  logger,
	}
	if cfg.OpenAIAPIKey != "" {
		llm, err := aibackend.NewOpenAIModel(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL)
		if err != nil {
			fatal(logger, "openai client initialization failed", err)
		}
		clients.OpenAI = llm
	}
	if cfg.GeminiAPIKey != "" {
		streamer, err := aibackend.NewGenAIStreamer(context.Background(), cfg.GeminiAPIKey, cfg.GeminiConcurrentReqs)
		if err != nil {
			fatal(logger, "gemini client initialization failed", err)
		}
		defer streamer.Close()
		clients.Gemini = streamer
	}
	factory := aibackend.NewFactory(catalogRepo, aibackend.Constructors(clients))
	logger.Info("ai backends configured", "families", factory.Families())

	// ──── Initialize Services ────
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)
	queue := worker.NewRedisQueue(redisClients.Queue, jobRepo)
	dialogueService := services.NewDialogueService(dialogueRepo, catalogRepo, jobRepo, queue, store,
		services.DialogueServiceConfig{
			ListCacheTTL:      cfg.ListCacheTTL,
			LatestDialogueTTL: cfg.LatestDialogueTTL,
			JobMaxRetries:     cfg.JobMaxRetries,
		}, logger)
	catalogService := services.NewCatalogService(catalogRepo, logger)

	// ──── Step 6: Start Job Worker Pool ────
	publisher := worker.NewRedisPublisher(redisClients.PubSub, logger)
	workerPool := worker.NewPool(
		redisClients.Queue,
		queue,
		jobRepo,
		dialogueRepo,
		factory,
		dialogueService,
		publisher,
		cfg.ReplyPersistence,
		cfg.WorkerCount,
		logger,
	)
	workerPool.Start()

	// ──── Step 7: Start WebSocket Hub ────
	wsHub := websocket.NewHub(redisClients.PubSub, jwtAuth, logger)

	// ──── Step 8: Start HTTP Server ────
	r, stopLimiter := router.New(
		jwtAuth,
		handlers.NewDialogueHandler(dialogueService),
		handlers.NewCatalogHandler(catalogService),
		handlers.NewJobHandler(dialogueService),
		wsHub,
		router.Config{FrontendURL: cfg.FrontendURL, CreatePerMinute: cfg.CreateRatePerMinute},
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)

		workerPool.Stop(ctx)
		wsHub.Close()
		stopLimiter()
	}()

	logger.Info("dialogue backend ready", "addr", server.Addr, "api", "/api", "ws", "/api/ws")

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		fatal(logger, "server error", err)
	}
	<-done
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "error", err)
	os.Exit(1)
}
