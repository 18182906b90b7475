// Command pokedex-server serves the paginated Pokémon listing as JSON.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sternrassler/pokeapi-client/internal/config"
	"github.com/Sternrassler/pokeapi-client/pkg/cache"
	"github.com/Sternrassler/pokeapi-client/pkg/filter"
	"github.com/Sternrassler/pokeapi-client/pkg/logging"
	"github.com/Sternrassler/pokeapi-client/pkg/pokeapi"
	"github.com/Sternrassler/pokeapi-client/pkg/pokedex"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

const (
	serverReadTimeout      = 10 * time.Second
	serverWriteTimeout     = 2 * time.Minute
	serverIdleTimeout      = 2 * time.Minute
	defaultGracefulTimeout = 30 * time.Second
	memoryPruneInterval    = 10 * time.Minute
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logging.Setup(cfg.Logging())
	logger := logging.NewLogger("server")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := cfg.OpenStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	if mem, ok := store.(*cache.MemoryStore); ok {
		go mem.RunPruner(ctx, memoryPruneInterval)
	}

	client, err := pokeapi.New(cfg.Client(store))
	if err != nil {
		return fmt.Errorf("create pokeapi client: %w", err)
	}
	defer client.Close()

	dex, err := pokedex.New(client, cfg.Pokedex(filter.ModeSubstring))
	if err != nil {
		return fmt.Errorf("create pokedex: %w", err)
	}

	// First page loads in the background so /health answers immediately
	go func() {
		if err := dex.LoadInitial(ctx); err != nil {
			logger.Error().Err(err).Msg("Initial page load failed")
		}
	}()

	router := NewServer(dex, client.Cache(),
		WithMiddlewares(
			middleware.RequestID,
			middleware.RealIP,
			middleware.Recoverer,
			LoggingMiddleware,
		),
	)

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  serverReadTimeout,
		WriteTimeout: serverWriteTimeout,
		IdleTimeout:  serverIdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", cfg.Addr()).
			Str("base_url", cfg.BaseURL).
			Str("user_agent", cfg.UserAgent).
			Str("cache", store.Name()).
			Msg("Starting pokedex server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultGracefulTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info().Msg("Server shutdown complete")
	return nil
}
