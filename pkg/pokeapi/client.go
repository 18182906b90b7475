// Package pokeapi provides the PokeAPI HTTP client with rate limiting,
// response caching and typed errors.
package pokeapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/pokeapi-client/pkg/cache"
	"github.com/Sternrassler/pokeapi-client/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultBaseURL is the public PokeAPI v2 root.
const DefaultBaseURL = "https://pokeapi.co/api/v2"

// Prometheus metrics for PokeAPI client operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pokeapi_requests_total",
		Help: "Total PokeAPI requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pokeapi_request_duration_seconds",
		Help:    "PokeAPI request duration in seconds by endpoint",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pokeapi_errors_total",
		Help: "Total PokeAPI errors by class",
	}, []string{"class"})
)

// Client is the PokeAPI client.
type Client struct {
	httpClient  *http.Client
	baseURL     *url.URL
	rateLimiter *ratelimit.Tracker
	cache       *cache.Manager
	config      Config
	logger      zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL is the API root, e.g. "https://pokeapi.co/api/v2"
	BaseURL string

	// User-Agent header sent with every request
	// Format: "AppName/Version (contact@example.com)"
	UserAgent string

	// Store backs the response cache (nil: in-process memory)
	Store cache.Store

	// RequestTimeout bounds a single HTTP exchange
	RequestTimeout time.Duration

	// Caching
	FallbackTTL    time.Duration // TTL for responses without freshness headers
	StaleRetention time.Duration // How long expired entries stay revalidatable
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(userAgent string) Config {
	return Config{
		BaseURL:        DefaultBaseURL,
		UserAgent:      userAgent,
		RequestTimeout: 30 * time.Second,
		FallbackTTL:    cache.DefaultTTL,
		StaleRetention: cache.DefaultStaleRetention,
	}
}

// New creates a new PokeAPI client.
func New(cfg Config) (*Client, error) {
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}

	baseURL, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || baseURL.Scheme == "" || baseURL.Host == "" {
		return nil, fmt.Errorf("base url must be absolute (got %q)", cfg.BaseURL)
	}

	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.FallbackTTL <= 0 {
		cfg.FallbackTTL = cache.DefaultTTL
	}
	if cfg.StaleRetention < 0 {
		return nil, fmt.Errorf("stale_retention must be >= 0 (got %s)", cfg.StaleRetention)
	}

	store := cfg.Store
	if store == nil {
		store = cache.NewMemoryStore()
	}

	logger := log.With().Str("component", "pokeapi-client").Logger()

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		baseURL:     baseURL,
		rateLimiter: ratelimit.NewTracker(logger),
		cache:       cache.NewManager(store, cache.WithStaleRetention(cfg.StaleRetention)),
		config:      cfg,
		logger:      logger,
	}, nil
}

// Do performs an HTTP request with rate limiting and caching.
// Non-2xx responses are returned without error, the caller inspects the status.
// Errors are returned for blocked requests (ErrRateLimited) and transport
// failures (*APIError with ErrorClassNetwork).
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	endpoint := endpointLabel(req.URL.Path)

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	// Step 1: Check Cache
	cacheable := req.Method == http.MethodGet
	cacheKey := cache.KeyForURL(req.URL)
	var cachedEntry *cache.CacheEntry

	if cacheable {
		entry, err := c.cache.Get(ctx, cacheKey)
		if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Cache get error")
		}

		if entry != nil && !entry.IsExpired() {
			c.logger.Debug().
				Str("endpoint", endpoint).
				Dur("ttl", entry.TTL()).
				Msg("Serving response from cache")
			requestsTotal.WithLabelValues(endpoint, "cache").Inc()
			return cache.EntryToResponse(entry, req), nil
		}

		// Step 2: Stale entry - revalidate instead of downloading again
		if entry != nil && cache.ShouldMakeConditionalRequest(entry) {
			cachedEntry = entry
			cache.AddConditionalHeaders(req, entry)
			cache.ConditionalRequestsSent.Inc()
			c.logger.Debug().
				Str("endpoint", endpoint).
				Str("etag", entry.ETag).
				Msg("Making conditional request")
		}
	}

	// Step 3: Check Rate Limit, only requests that reach the upstream count
	allowed, err := c.rateLimiter.ShouldAllowRequest(ctx)
	if err != nil {
		return nil, fmt.Errorf("rate limit check: %w", err)
	}
	if !allowed {
		c.logger.Warn().
			Str("endpoint", endpoint).
			Msg("Request blocked by rate limiter")
		requestsTotal.WithLabelValues(endpoint, "rate_limited").Inc()
		errorsTotal.WithLabelValues(string(ErrorClassRateLimit)).Inc()
		return nil, ErrRateLimited
	}

	// Step 4: Set headers
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	// Step 5: Execute HTTP Request
	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("method", req.Method).
		Msg("Executing PokeAPI request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("endpoint", endpoint).Msg("HTTP request failed")
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		return nil, &APIError{
			ErrorClass: ErrorClassNetwork,
			URL:        req.URL.String(),
			Message:    "request failed",
			Err:        err,
		}
	}

	// Step 6: Update Rate Limit from headers
	if err := c.rateLimiter.UpdateFromHeaders(resp.StatusCode, resp.Header); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to update rate limit from headers")
	}

	requestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	// Step 7: Handle 304 Not Modified
	if resp.StatusCode == http.StatusNotModified && cachedEntry != nil {
		c.logger.Debug().Str("endpoint", endpoint).Msg("304 Not Modified - using cache")
		cache.NotModifiedResponses.Inc()
		resp.Body.Close()

		cachedEntry.Expires = cache.ExpiresFromHeaders(resp.Header, c.config.FallbackTTL)
		if err := c.cache.UpdateTTL(ctx, cacheKey, cachedEntry.Expires); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to refresh cache entry")
		}

		return cache.EntryToResponse(cachedEntry, req), nil
	}

	if resp.StatusCode >= 400 {
		errClass := classifyStatus(resp.StatusCode)
		errorsTotal.WithLabelValues(string(errClass)).Inc()

		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Str("error_class", string(errClass)).
			Msg("PokeAPI request error")

		return resp, nil
	}

	// Step 8: Update Cache on success
	if cacheable && resp.StatusCode == http.StatusOK {
		entry, err := cache.ResponseToEntry(resp, c.config.FallbackTTL)
		if err != nil {
			c.logger.Warn().Err(err).Msg("Failed to create cache entry")
		} else if err := c.cache.Set(ctx, cacheKey, entry); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to cache response")
		} else {
			c.logger.Debug().
				Str("endpoint", endpoint).
				Dur("ttl", entry.TTL()).
				Msg("Cached response")
		}
	}

	return resp, nil
}

// GetJSON fetches rawURL and decodes the JSON body into out.
// Non-2xx statuses and undecodable bodies are returned as *APIError.
func (c *Client) GetJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			StatusCode: resp.StatusCode,
			ErrorClass: classifyStatus(resp.StatusCode),
			URL:        rawURL,
			Message:    http.StatusText(resp.StatusCode),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassDecode)).Inc()
		// A cached copy of a broken body must not be served again
		if delErr := c.cache.Delete(ctx, cache.KeyForURL(req.URL)); delErr != nil {
			c.logger.Warn().Err(delErr).Msg("Failed to evict undecodable response")
		}
		return &APIError{
			StatusCode: resp.StatusCode,
			ErrorClass: ErrorClassDecode,
			URL:        rawURL,
			Message:    "decode response",
			Err:        err,
		}
	}

	// Drain so the connection can be reused
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// ListPokemon fetches one page of Pokémon summaries.
func (c *Client) ListPokemon(ctx context.Context, offset, limit int) (*ResourceList, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be > 0 (got %d)", limit)
	}
	if offset < 0 {
		return nil, fmt.Errorf("offset must be >= 0 (got %d)", offset)
	}

	u := c.resourceURL("pokemon")
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	u.RawQuery = q.Encode()

	var list ResourceList
	if err := c.GetJSON(ctx, u.String(), &list); err != nil {
		return nil, fmt.Errorf("list pokemon (offset %d): %w", offset, err)
	}
	return &list, nil
}

// GetPokemon fetches a detail record by its absolute URL, as found in a
// NamedResource.
func (c *Client) GetPokemon(ctx context.Context, rawURL string) (*Pokemon, error) {
	var p Pokemon
	if err := c.GetJSON(ctx, rawURL, &p); err != nil {
		return nil, fmt.Errorf("get pokemon: %w", err)
	}
	return &p, nil
}

// GetPokemonByName fetches a detail record by name or numeric id.
func (c *Client) GetPokemonByName(ctx context.Context, name string) (*Pokemon, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}
	return c.GetPokemon(ctx, c.resourceURL("pokemon", name).String()+"/")
}

// resourceURL joins path segments onto the base URL.
func (c *Client) resourceURL(segments ...string) *url.URL {
	u := *c.baseURL
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.Join(escaped, "/")
	u.RawPath = ""
	return &u
}

// endpointLabel collapses resource ids so metric cardinality stays bounded:
// /api/v2/pokemon/25/ becomes /api/v2/pokemon/{id}.
func endpointLabel(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) > 3 {
		return "/" + strings.Join(segments[:3], "/") + "/{id}"
	}
	return "/" + strings.Join(segments, "/")
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// SetHTTPClient replaces the HTTP client, e.g. to install a custom transport.
// RequestTimeout does not apply to the replacement.
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// Cache returns the cache manager.
func (c *Client) Cache() *cache.Manager {
	return c.cache
}

// RateLimiter returns the rate limit tracker.
func (c *Client) RateLimiter() *ratelimit.Tracker {
	return c.rateLimiter
}
