// Package main is the entry point for the guild activity hub: the
// activity-accrual engine that turns community activity (messages, voice
// presence) into XP and automatic rank-role assignment.
//
// The process is headless by itself - the platform adapter that delivers
// events binds to the engine's entry points. What main owns is the
// lifecycle: load configuration, connect the store, populate the cache,
// serve health/metrics, and on shutdown drain every live voice session
// before the process is allowed to exit.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/guild-hub/guild-activity-hub/config"
	"github.com/guild-hub/guild-activity-hub/internal/application"
	"github.com/guild-hub/guild-activity-hub/internal/application/eventhandler"
	"github.com/guild-hub/guild-activity-hub/internal/application/query"
	"github.com/guild-hub/guild-activity-hub/internal/cache"
	"github.com/guild-hub/guild-activity-hub/internal/domain/shared"
	"github.com/guild-hub/guild-activity-hub/internal/infrastructure/messaging"
	"github.com/guild-hub/guild-activity-hub/internal/infrastructure/persistence/postgres"
	redisinfra "github.com/guild-hub/guild-activity-hub/internal/infrastructure/persistence/redis"
	"github.com/guild-hub/guild-activity-hub/internal/interface/gateway"
	httpserver "github.com/guild-hub/guild-activity-hub/internal/interface/http"
)

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Durable store.
	conn, err := postgres.Connect(ctx, postgres.DefaultConfig(cfg.DatabaseURL))
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := postgres.Migrate(ctx, conn); err != nil {
		return err
	}
	communities := postgres.NewCommunityRepository(conn)
	members := postgres.NewMemberRepository(conn)

	checks := []httpserver.HealthCheck{
		{Name: "postgres", Ping: conn.Ping},
	}

	// Optional leaderboard cache.
	var lbCache query.LeaderboardCache
	if cfg.RedisEnabled {
		rdb, err := redisinfra.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer func() { _ = rdb.Close() }()
		lbCache = redisinfra.NewLeaderboardCache(rdb, cfg.LeaderboardTTL)
		checks = append(checks, httpserver.HealthCheck{
			Name: "redis",
			Ping: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		})
	}

	// Event bus and subscribers.
	registry := prometheus.NewRegistry()
	bus := messaging.NewEventBus(logger, messaging.NewMetrics(registry))
	defer bus.Close()

	accrualMetrics := eventhandler.NewMetrics(registry)
	if err := bus.Subscribe(shared.EventXPGranted, eventhandler.OnXPGranted(lbCache, accrualMetrics, logger)); err != nil {
		return err
	}
	if err := bus.Subscribe(shared.EventRankChanged, eventhandler.OnRankChanged(accrualMetrics, logger)); err != nil {
		return err
	}
	if err := bus.Subscribe(shared.EventSessionClosed, eventhandler.OnSessionClosed(accrualMetrics, logger)); err != nil {
		return err
	}

	// Engine. The noop gateway stands in until a platform adapter binds.
	platform := gateway.Noop{Logger: logger}
	engine := application.New(application.Deps{
		Cache:            cache.New(logger),
		Communities:      communities,
		Members:          members,
		Roles:            platform,
		Presence:         platform,
		Bus:              bus,
		Leaderboard:      lbCache,
		Logger:           logger,
		Location:         cfg.Location,
		LeaderboardDepth: cfg.LeaderboardDepth,
	})

	startedAt := time.Now().UTC()
	if err := engine.Load(ctx, startedAt); err != nil {
		return err
	}

	server := httpserver.NewServer(cfg.HTTPAddr, checks, registry, logger)
	serverErr := make(chan error, 1)
	go func() { serverErr <- server.Start() }()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	// Shutdown. In-flight event processing finishes, then the session
	// drain runs; skipping it would lose partial voice sessions.
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", "error", err)
	}

	flush := engine.Flush(shutdownCtx, time.Now().UTC())
	if flush.Failed > 0 {
		logger.Error("session drain incomplete", "failed", flush.Failed)
	}

	logger.Info("shutdown complete", "sessions_flushed", flush.Flushed)
	return nil
}
