package pagination

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

var (
	batchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pokedex_batch_duration_seconds",
		Help:    "Duration of detail batch fetches in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	})

	batchItemsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pokedex_batch_items_total",
		Help: "Total batch items by result",
	}, []string{"result"})
)

// Config holds batch fetcher configuration
type Config struct {
	// MaxConcurrency is the maximum number of parallel requests
	// One listing page is 20 entries, so 20 resolves a page in one wave
	MaxConcurrency int
	// Timeout per item fetch
	Timeout time.Duration
}

// DefaultConfig returns the default batch configuration
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 20,
		Timeout:        15 * time.Second,
	}
}

// FetchFunc resolves a single URL into a value.
type FetchFunc[T any] func(ctx context.Context, url string) (T, error)

// ItemError identifies the batch item whose failure aborted the batch.
type ItemError struct {
	Index int
	URL   string
	Err   error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("item %d (%s): %v", e.Index, e.URL, e.Err)
}

func (e *ItemError) Unwrap() error {
	return e.Err
}

// BatchFetcher resolves lists of URLs in parallel
type BatchFetcher[T any] struct {
	fetch  FetchFunc[T]
	config Config
	logger zerolog.Logger
}

// NewBatchFetcher creates a new batch fetcher
func NewBatchFetcher[T any](fetch FetchFunc[T], config Config) *BatchFetcher[T] {
	defaults := DefaultConfig()
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = defaults.MaxConcurrency
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}

	return &BatchFetcher[T]{
		fetch:  fetch,
		config: config,
		logger: log.With().Str("component", "batch-fetcher").Logger(),
	}
}

// Config returns the effective configuration.
func (bf *BatchFetcher[T]) Config() Config {
	return bf.config
}

// FetchAll fetches every URL and returns the results in input order.
// The first failure cancels the remaining fetches and is returned as
// *ItemError; no partial results are returned.
func (bf *BatchFetcher[T]) FetchAll(ctx context.Context, urls []string) ([]T, error) {
	start := time.Now()
	defer func() {
		batchDuration.Observe(time.Since(start).Seconds())
	}()

	results := make([]T, len(urls))
	if len(urls) == 0 {
		return results, nil
	}

	bf.logger.Debug().
		Int("count", len(urls)).
		Int("max_concurrency", bf.config.MaxConcurrency).
		Msg("Starting batch fetch")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bf.config.MaxConcurrency)

	for i, url := range urls {
		// Stop scheduling once a sibling failed
		if gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			itemCtx, cancel := context.WithTimeout(gctx, bf.config.Timeout)
			defer cancel()

			value, err := bf.fetch(itemCtx, url)
			if err != nil {
				batchItemsTotal.WithLabelValues("error").Inc()
				return &ItemError{Index: i, URL: url, Err: err}
			}

			results[i] = value
			batchItemsTotal.WithLabelValues("ok").Inc()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		bf.logger.Warn().
			Err(err).
			Int("count", len(urls)).
			Dur("duration", time.Since(start)).
			Msg("Batch fetch failed - discarding batch")
		return nil, err
	}

	// Cancelled before any item was scheduled
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("batch cancelled: %w", err)
	}

	bf.logger.Debug().
		Int("count", len(urls)).
		Dur("duration", time.Since(start)).
		Msg("Batch fetch complete")

	return results, nil
}
