// Package config loads service and CLI configuration from the environment.
package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/Sternrassler/pokeapi-client/pkg/cache"
	"github.com/Sternrassler/pokeapi-client/pkg/filter"
	"github.com/Sternrassler/pokeapi-client/pkg/logging"
	"github.com/Sternrassler/pokeapi-client/pkg/pokeapi"
	"github.com/Sternrassler/pokeapi-client/pkg/pokedex"
	"github.com/caarlos0/env/v11"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Config is the environment configuration shared by the server and the CLI.
type Config struct {
	BaseURL        string        `env:"POKEAPI_BASE_URL" envDefault:"https://pokeapi.co/api/v2"`
	UserAgent      string        `env:"POKEAPI_USER_AGENT" envDefault:"pokeapi-client/0.1.0"`
	RequestTimeout time.Duration `env:"POKEAPI_REQUEST_TIMEOUT" envDefault:"30s"`

	PageSize       int           `env:"POKEDEX_PAGE_SIZE" envDefault:"20"`
	MaxConcurrency int           `env:"POKEDEX_MAX_CONCURRENCY" envDefault:"20"`
	DetailTimeout  time.Duration `env:"POKEDEX_DETAIL_TIMEOUT" envDefault:"15s"`

	// RedisURL selects the shared response cache; empty keeps it in memory
	RedisURL string `env:"REDIS_URL"`

	Port      int    `env:"PORT" envDefault:"8080"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogPretty bool   `env:"LOG_PRETTY" envDefault:"false"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses and validates the configuration.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("POKEAPI_BASE_URL must be an absolute URL (got %q)", c.BaseURL)
	}
	if strings.TrimSpace(c.UserAgent) == "" {
		return fmt.Errorf("POKEAPI_USER_AGENT is required")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("POKEAPI_REQUEST_TIMEOUT must be > 0 (got %s)", c.RequestTimeout)
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("POKEDEX_PAGE_SIZE must be > 0 (got %d)", c.PageSize)
	}
	if c.MaxConcurrency <= 0 {
		return fmt.Errorf("POKEDEX_MAX_CONCURRENCY must be > 0 (got %d)", c.MaxConcurrency)
	}
	if c.DetailTimeout <= 0 {
		return fmt.Errorf("POKEDEX_DETAIL_TIMEOUT must be > 0 (got %s)", c.DetailTimeout)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT must be in 1..65535 (got %d)", c.Port)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return nil
}

// Addr is the listen address of the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// RedisOptions returns the Redis connection options, or nil when no Redis is
// configured. redis:// and rediss:// URLs are parsed; anything else is taken
// as host:port.
func (c Config) RedisOptions() (*redis.Options, error) {
	raw := strings.TrimSpace(c.RedisURL)
	if raw == "" {
		return nil, nil
	}

	if strings.HasPrefix(raw, "redis://") || strings.HasPrefix(raw, "rediss://") {
		opts, err := redis.ParseURL(raw)
		if err != nil {
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		return opts, nil
	}

	return &redis.Options{Addr: raw}, nil
}

// OpenStore returns the Redis store when REDIS_URL is set, the in-memory
// store otherwise. The Redis connection is checked with a ping. The returned
// func releases the connection and is never nil on success.
func (c Config) OpenStore(ctx context.Context) (cache.Store, func(), error) {
	opts, err := c.RedisOptions()
	if err != nil {
		return nil, nil, err
	}
	if opts == nil {
		return cache.NewMemoryStore(), func() {}, nil
	}

	redisClient := redis.NewClient(opts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		redisClient.Close()
		return nil, nil, fmt.Errorf("connect to redis at %s: %w", opts.Addr, err)
	}
	log.Info().Str("addr", opts.Addr).Msg("Connected to Redis")

	closeFn := func() {
		if err := redisClient.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close Redis client")
		}
	}
	return cache.NewRedisStore(redisClient), closeFn, nil
}

// Logging returns the logger configuration.
func (c Config) Logging() logging.Config {
	level, err := logging.ParseLevel(c.LogLevel)
	if err != nil {
		level = logging.LevelInfo
	}
	return logging.Config{
		Level:  level,
		Pretty: c.LogPretty,
		Output: os.Stderr,
	}
}

// Client returns the PokeAPI client configuration backed by store.
func (c Config) Client(store cache.Store) pokeapi.Config {
	cfg := pokeapi.DefaultConfig(c.UserAgent)
	cfg.BaseURL = c.BaseURL
	cfg.RequestTimeout = c.RequestTimeout
	cfg.Store = store
	return cfg
}

// Pokedex returns the controller configuration.
func (c Config) Pokedex(mode filter.Mode) pokedex.Config {
	return pokedex.Config{
		PageSize:       c.PageSize,
		MaxConcurrency: c.MaxConcurrency,
		DetailTimeout:  c.DetailTimeout,
		FilterMode:     mode,
	}
}
