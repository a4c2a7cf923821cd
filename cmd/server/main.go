package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/club-portal/internal/app"
	"github.com/club-portal/internal/auth"
	"github.com/club-portal/internal/config"
	"github.com/club-portal/internal/handler"
	"github.com/club-portal/internal/kafka"
	"github.com/club-portal/internal/redis"
	"github.com/club-portal/internal/roles"
	"github.com/club-portal/internal/service"
	"github.com/club-portal/internal/tactics"
	"github.com/club-portal/internal/websocket"
	"github.com/club-portal/internal/worker"
)

// sessionStore is a session store the reaper can sweep
type sessionStore interface {
	auth.SessionStore
	worker.Sweeper
}

func main() {
	// Parse command line flags
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Warn("failed to load config file, using defaults", "error", err)
		cfg = config.DefaultConfig()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backend, err := app.OpenBackend(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open document store", "backend", cfg.Store.Backend, "error", err)
		os.Exit(1)
	}
	defer backend.Close()
	logger.Info("document store ready", "backend", backend.Name)

	// Sessions, role cache and drafts live in Redis when it is enabled
	var (
		sessions  sessionStore
		roleCache roles.Cache
		drafts    tactics.DraftStore
		redisPing func(context.Context) error
	)
	if cfg.Redis.Enabled {
		logger.Info("connecting to Redis", "addr", cfg.Redis.Addr)
		redisClient, err := redis.NewClient(&cfg.Redis, logger)
		if err != nil {
			logger.Error("failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		logger.Info("connected to Redis")

		sessions = redisClient.Sessions()
		roleCache = redisClient.Roles()
		drafts = redisClient.Drafts(cfg.Drafts.TTL, cfg.Drafts.MaxRetries)
		redisPing = redisClient.Ping
	} else {
		logger.Warn("redis disabled, sessions and drafts are kept in memory")
		sessions = auth.NewMemorySessions()
		roleCache = roles.NewMemoryCache()
		drafts = tactics.NewMemoryDrafts(cfg.Drafts.TTL)
	}

	tokens, err := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	if err != nil {
		logger.Error("failed to create token issuer", "error", err)
		os.Exit(1)
	}
	gateway := auth.NewGateway(backend.Accounts, sessions, backend.Docs, tokens, cfg.Auth.BcryptCost, logger)
	resolver := roles.NewResolver(backend.Docs, roleCache, logger)
	gateway.OnSessionChange(resolver.HandleSessionChange)

	// Kafka producer for change events; the portal works without it
	var publisher service.EventPublisher = service.NopPublisher{}
	var producer *kafka.Producer
	if cfg.Kafka.Enabled {
		logger.Info("initializing Kafka producer",
			"brokers", cfg.Kafka.Brokers,
			"topic", cfg.Kafka.Topic,
		)
		producer, err = kafka.NewProducer(&cfg.Kafka, logger)
		if err != nil {
			logger.Warn("failed to create Kafka producer, continuing without change events", "error", err)
		} else {
			publisher = producer
		}
	}

	// Kafka consumer that writes change events to the audit log
	var kafkaConsumer *kafka.Consumer
	if cfg.Kafka.Enabled && backend.Recorder != nil {
		kafkaConsumer, err = kafka.NewConsumer(&cfg.Kafka, backend.Recorder, logger)
		if err != nil {
			logger.Warn("failed to create Kafka consumer, continuing without audit log", "error", err)
		} else if err := kafkaConsumer.Start(); err != nil {
			logger.Warn("failed to start Kafka consumer, continuing without audit log", "error", err)
			kafkaConsumer = nil
		} else {
			logger.Info("Kafka consumer started successfully")
		}
	}

	// Initialize services
	feed := service.NewFeedService(backend.Docs, cfg.Club.Name, logger)
	svc := handler.Services{
		Gateway:     gateway,
		Resolver:    resolver,
		Feed:        feed,
		Roster:      service.NewRosterService(backend.Docs, logger),
		Leaderboard: service.NewLeaderboardService(backend.Docs, &cfg.Leaderboard, logger),
		Dashboard:   service.NewDashboardService(backend.Docs, feed, logger),
		Tactics:     service.NewTacticsService(backend.Docs, drafts, publisher, logger),
		Admin:       service.NewAdminService(backend.Docs, backend.Accounts, publisher, cfg.Club.Location(), logger),
		Countdown:   websocket.NewCountdown(feed.NextMatch, logger),
	}

	reaper := worker.NewSessionReaper(sessions, roleCache, &cfg.Sessions, logger)
	if cfg.Sessions.ReapEnabled {
		if err := reaper.Start(ctx); err != nil {
			logger.Error("failed to start session reaper", "error", err)
			os.Exit(1)
		}
	}

	httpHandler := handler.NewHandler(svc, cfg.CORS.AllowedOrigins, logger)
	httpHandler.AddReadyCheck(backend.Name, backend.Ping)
	if redisPing != nil {
		httpHandler.AddReadyCheck("redis", redisPing)
	}

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      httpHandler.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting HTTP server", "port", cfg.Server.Port, "club", cfg.Club.Name)
		logger.Info("countdown stream available at /ws/countdown")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown server", "error", err)
	}

	if kafkaConsumer != nil {
		if err := kafkaConsumer.Stop(); err != nil {
			logger.Error("failed to stop Kafka consumer", "error", err)
		}
	}
	if producer != nil {
		if err := producer.Close(); err != nil {
			logger.Error("failed to close Kafka producer", "error", err)
		}
	}

	if reaper.IsRunning() {
		if err := reaper.Stop(); err != nil {
			logger.Error("failed to stop session reaper", "error", err)
		}
	}

	logger.Info("server stopped")
}
