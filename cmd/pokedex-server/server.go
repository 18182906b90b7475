package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/Sternrassler/pokeapi-client/pkg/filter"
	"github.com/Sternrassler/pokeapi-client/pkg/logging"
	"github.com/Sternrassler/pokeapi-client/pkg/metrics"
	"github.com/Sternrassler/pokeapi-client/pkg/pokedex"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// readyTimeout bounds the readiness probe of the cache backend.
const readyTimeout = 2 * time.Second

// ReadinessChecker reports whether a backing service answers.
// *cache.Manager implements it.
type ReadinessChecker interface {
	Ping(ctx context.Context) error
}

// ServerOption configures the HTTP server
type ServerOption func(*serverConfig)

type serverConfig struct {
	middlewares []func(http.Handler) http.Handler
}

// WithMiddlewares adds middleware to the server
func WithMiddlewares(mw ...func(http.Handler) http.Handler) ServerOption {
	return func(cfg *serverConfig) {
		cfg.middlewares = append(cfg.middlewares, mw...)
	}
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error string `json:"error"`
}

type routes struct {
	dex    *pokedex.Pokedex
	ready  ReadinessChecker
	logger zerolog.Logger
}

// NewServer creates the HTTP router around a listing controller.
func NewServer(dex *pokedex.Pokedex, ready ReadinessChecker, opts ...ServerOption) *chi.Mux {
	cfg := &serverConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	rt := &routes{
		dex:    dex,
		ready:  ready,
		logger: logging.NewLogger("server"),
	}

	r := chi.NewRouter()
	for _, mw := range cfg.middlewares {
		r.Use(mw)
	}

	r.Get("/health", healthHandler)
	r.Get("/ready", rt.readyHandler)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/pokemon", func(r chi.Router) {
		r.Get("/", rt.listHandler)
		r.Post("/more", rt.moreHandler)
		r.Post("/reload", rt.reloadHandler)
	})

	return r
}

// LoggingMiddleware logs HTTP requests
func LoggingMiddleware(next http.Handler) http.Handler {
	logger := logging.NewLogger("http")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (rt *routes) readyHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	if err := rt.ready.Ping(ctx); err != nil {
		rt.logger.Warn().Err(err).Msg("Readiness check failed")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("NOT READY"))
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// listHandler returns the filtered cards. The search and mode query
// parameters update the stored term and mode when present.
func (rt *routes) listHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if query.Has("mode") {
		mode, err := filter.ParseMode(query.Get("mode"))
		if err != nil {
			rt.writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		rt.dex.SetFilterMode(mode)
	}
	if query.Has("search") {
		rt.dex.SetSearchTerm(query.Get("search"))
	}

	rt.writeJSON(w, http.StatusOK, rt.dex.Snapshot())
}

func (rt *routes) moreHandler(w http.ResponseWriter, r *http.Request) {
	err := rt.dex.LoadMore(r.Context())
	if errors.Is(err, pokedex.ErrNoMorePages) {
		err = nil
	}
	rt.respondAfterFetch(w, err)
}

func (rt *routes) reloadHandler(w http.ResponseWriter, r *http.Request) {
	rt.respondAfterFetch(w, rt.dex.LoadInitial(r.Context()))
}

func (rt *routes) respondAfterFetch(w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		rt.writeJSON(w, http.StatusOK, rt.dex.Snapshot())
	case errors.Is(err, pokedex.ErrFetchInProgress):
		rt.writeError(w, err.Error(), http.StatusConflict)
	case pokedex.IsUpstreamError(err):
		rt.writeError(w, err.Error(), http.StatusBadGateway)
	default:
		rt.writeError(w, err.Error(), http.StatusInternalServerError)
	}
}

func (rt *routes) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		rt.logger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (rt *routes) writeError(w http.ResponseWriter, message string, status int) {
	rt.writeJSON(w, status, ErrorResponse{Error: message})
}
