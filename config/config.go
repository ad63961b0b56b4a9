// Package config loads the application configuration from environment
// variables into a typed struct.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all application configuration.
type Config struct {
	// Debug switches logging to debug level.
	Debug bool `env:"APP_DEBUG" envDefault:"false"`

	// Timezone is used for calendar-day boundaries in accrual.
	Timezone string `env:"APP_TIMEZONE" envDefault:"UTC"`

	// DatabaseURL is the PostgreSQL connection string.
	DatabaseURL string `env:"DATABASE_URL,required"`

	// RedisEnabled toggles the leaderboard cache.
	RedisEnabled bool `env:"REDIS_ENABLED" envDefault:"false"`

	// RedisURL is the Redis connection string.
	RedisURL string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`

	// HTTPAddr is the health/metrics listen address.
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	// ShutdownTimeout bounds the graceful-shutdown drain.
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// LeaderboardTTL bounds leaderboard cache staleness.
	LeaderboardTTL time.Duration `env:"LEADERBOARD_CACHE_TTL" envDefault:"60s"`

	// LeaderboardDepth is how many entries cached leaderboards hold.
	LeaderboardDepth int `env:"LEADERBOARD_DEPTH" envDefault:"100"`

	// Location is resolved from Timezone at load time.
	Location *time.Location `env:"-"`
}

// Load parses the environment and validates the result.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config: invalid APP_TIMEZONE %q: %w", cfg.Timezone, err)
	}
	cfg.Location = loc

	if cfg.LeaderboardDepth <= 0 {
		return nil, fmt.Errorf("config: LEADERBOARD_DEPTH must be positive")
	}
	return cfg, nil
}
