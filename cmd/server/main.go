// Voice-driven dialogue server with agent integration.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/helmai/voice-server/internal/agent"
	"github.com/helmai/voice-server/internal/api"
	"github.com/helmai/voice-server/internal/config"
	"github.com/helmai/voice-server/internal/dialogue"
	"github.com/helmai/voice-server/internal/intent"
	"github.com/helmai/voice-server/internal/middleware"
	"github.com/helmai/voice-server/internal/session"
	"github.com/helmai/voice-server/internal/store"
	"github.com/helmai/voice-server/internal/trips"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected", "path", cfg.DBPath)

	// Embedding gateway and vector index.
	embedder, err := intent.NewHTTPEmbedder(intent.EmbedderConfig{
		BaseURL:   cfg.Embedding.BaseURL,
		Model:     cfg.Embedding.Model,
		APIKey:    cfg.Embedding.APIKey,
		Timeout:   cfg.Embedding.Timeout,
		CacheSize: cfg.Embedding.CacheSize,
	})
	if err != nil {
		slog.Error("Failed to initialize embedder", "error", err)
		os.Exit(1)
	}

	var index intent.Index
	switch cfg.Intent.Backend {
	case "memory":
		index = intent.NewMemoryIndex()
		slog.Info("Using in-memory vector index")
	default:
		index, err = intent.NewChromemIndex(cfg.Intent.ChromemPath, embedder)
		if err != nil {
			slog.Error("Failed to initialize vector index", "error", err)
			os.Exit(1)
		}
		slog.Info("Using chromem vector index", "path", cfg.Intent.ChromemPath)
	}
	matcher := intent.NewMatcher(embedder, index, cfg.Intent.DefaultThreshold, logger)

	// Session store and sweeper.
	sessions := session.NewStore()

	// Agent connection management.
	factory := func() (agent.Client, error) {
		return agent.NewHTTPClient(agent.HTTPClientConfig{
			BaseURL:        cfg.Agent.BaseURL,
			ConnectTimeout: cfg.Agent.ConnectTimeout,
			RequestTimeout: cfg.Agent.RequestTimeout,
		}, logger), nil
	}
	conn := agent.NewConnManager(agent.ConnConfig{
		ConnectTimeout:       cfg.Agent.ConnectTimeout,
		HealthCheckInterval:  cfg.Agent.HealthCheckInterval,
		ReconnectBaseDelay:   cfg.Agent.ReconnectBaseDelay,
		ReconnectMaxDelay:    cfg.Agent.ReconnectMaxDelay,
		ReconnectMaxAttempts: cfg.Agent.ReconnectMaxAttempts,
	}, factory, logger)
	defer conn.Close()

	invoker := agent.NewInvoker(agent.InvokerConfig{
		AgentID: cfg.Agent.AgentID,
		AliasID: cfg.Agent.AliasID,
	}, conn, sessions, logger)

	// Dialogue machine over the trips gateway. With no external
	// booking service configured the repository serves trips directly.
	var gateway trips.Gateway
	if cfg.Trips.BaseURL != "" {
		gateway = trips.NewHTTPGateway(trips.Config{
			BaseURL: cfg.Trips.BaseURL,
			Timeout: cfg.Trips.Timeout,
		})
		slog.Info("Using external booking service", "url", cfg.Trips.BaseURL)
	} else {
		gateway = trips.NewLocalGateway(repo)
		slog.Info("Using local booking repository for trips")
	}
	machine := dialogue.NewMachine(matcher, dialogue.NewHistory(), gateway,
		cfg.Intent.DefaultThreshold, logger)

	// Handlers.
	baseHandler := api.NewHandler(invoker, conn, sessions, machine, matcher, repo, logger)
	streamHandler := api.NewStreamHandler(conn, sessions,
		cfg.Agent.AgentID, cfg.Agent.AliasID, cfg.FrontendURL, cfg.IsDevelopment(), logger)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS([]string{"*"}))

	baseHandler.RegisterRoutes(r)
	r.Get("/ws/voice", streamHandler.ServeHTTP)

	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     r,
		ReadTimeout: 30 * time.Second,
		// Streaming responses need no write deadline.
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to the agent; failures schedule reconnects rather than
	// aborting startup.
	conn.Initialize(ctx)

	sessions.StartSweeper(ctx, cfg.Session.SweepInterval, cfg.Session.MaxAge)

	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
