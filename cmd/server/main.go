package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/timekeepco/timekeep/internal/config"
	"github.com/timekeepco/timekeep/internal/graph"
	"github.com/timekeepco/timekeep/internal/logging"
	"github.com/timekeepco/timekeep/internal/repository"
	"github.com/timekeepco/timekeep/internal/server"
	"github.com/timekeepco/timekeep/internal/service"
	"github.com/timekeepco/timekeep/internal/session"
	"github.com/timekeepco/timekeep/internal/store"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging)
	if cfg.Auth.Secret == config.DefaultAuthSecret {
		logger.Warn("using the built-in development AUTH_SECRET; set AUTH_SECRET before deploying")
	}

	users, err := store.Open(cfg.Database.Path)
	if err != nil {
		logger.Error("failed to open user store", "path", cfg.Database.Path, "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := users.Close(); err != nil {
			logger.Warn("closing user store failed", "error", err)
		}
	}()

	revocations, err := buildRevocationStore(ctx, logger, cfg.Redis)
	if err != nil {
		logger.Error("failed to connect to redis", "addr", cfg.Redis.Addr, "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := revocations.Close(); err != nil {
			logger.Warn("closing revocation store failed", "error", err)
		}
	}()

	sessions, err := session.NewManager(cfg.Auth.Secret, cfg.Auth.Issuer, cfg.Auth.TokenTTL, session.WithStore(revocations))
	if err != nil {
		logger.Error("failed to create session manager", "error", err)
		os.Exit(1)
	}

	graphClient, err := buildGraphClient(ctx, logger, cfg.Graph)
	if err != nil {
		logger.Error("failed to create graph client", "error", err)
		os.Exit(1)
	}
	defer func() {
		if graphClient != nil {
			if err := graphClient.Close(context.Background()); err != nil {
				logger.Warn("closing graph client failed", "error", err)
			}
		}
	}()

	health := server.HealthChecks{
		"users": server.PingHealthService{Target: users},
	}
	var compareOpts []service.ComparisonOption
	deps := server.RouterDependencies{
		AllowedOrigins:   cfg.HTTP.AllowedOrigins(),
		AllowCredentials: true,
	}
	if graphClient != nil {
		history := repository.New(graphClient)
		compareOpts = append(compareOpts, service.WithRecorder(service.NewBulkRecorder(history, 0, 0)))
		deps.History = server.NewHistoryHandlers(logger, history)
		health["graph"] = server.GraphHealthService{Client: graphClient}
	}
	if pinger, ok := revocations.(server.Pinger); ok {
		health["redis"] = server.PingHealthService{Target: pinger}
	}

	comparison := service.NewComparisonService(logger, compareOpts...)
	auth := service.NewAuthService(users, sessions, logger)

	deps.Health = health
	deps.Compare = server.NewCompareHandlers(logger, comparison, cfg.Compare)
	deps.Auth = server.NewAuthHandlers(logger, auth, cfg.Auth.CookieSecure)
	deps.Pages = server.NewPageHandlers(logger, auth)

	router := server.NewRouter(logger, deps)
	srv := server.New(logger, cfg.HTTP, router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("server stopped unexpectedly", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}

// buildGraphClient returns nil when no graph URI is configured.
func buildGraphClient(ctx context.Context, logger *slog.Logger, cfg config.GraphConfig) (graph.Client, error) {
	if cfg.URI == "" {
		logger.Info("GRAPH_URI not set; comparison history disabled")
		return nil, nil
	}

	client, err := graph.NewNeo4jClient(ctx, graph.Options{
		URI:            cfg.URI,
		Database:       cfg.Database,
		Username:       cfg.Username,
		Password:       cfg.Password,
		MaxConnections: cfg.MaxConnections,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("comparison history enabled", "uri", cfg.URI)
	return client, nil
}

func buildRevocationStore(ctx context.Context, logger *slog.Logger, cfg config.RedisConfig) (session.Store, error) {
	if cfg.Addr == "" {
		logger.Info("REDIS_ADDR not set; token revocations are kept in memory")
		return session.NewMemoryStore(), nil
	}
	return session.NewRedisStore(ctx, session.RedisOptions{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}
