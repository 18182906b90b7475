package pokedex

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Sternrassler/pokeapi-client/pkg/filter"
	"github.com/Sternrassler/pokeapi-client/pkg/pagination"
	"github.com/Sternrassler/pokeapi-client/pkg/pokeapi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	pageFetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pokedex_page_fetches_total",
		Help: "Total page fetches by kind and result",
	}, []string{"kind", "result"})

	pageFetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pokedex_page_fetch_duration_seconds",
		Help:    "Duration of successful page fetches in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	})

	recordsLoaded = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pokedex_records",
		Help: "Number of records in the accumulated list",
	})
)

// Source lists summaries and resolves them into detail records.
// *pokeapi.Client implements Source.
type Source interface {
	ListPokemon(ctx context.Context, offset, limit int) (*pokeapi.ResourceList, error)
	GetPokemon(ctx context.Context, url string) (*pokeapi.Pokemon, error)
}

// Config holds the controller configuration.
type Config struct {
	PageSize       int
	MaxConcurrency int
	DetailTimeout  time.Duration
	FilterMode     filter.Mode
}

// DefaultConfig returns the default controller configuration.
func DefaultConfig() Config {
	batch := pagination.DefaultConfig()
	return Config{
		PageSize:       pagination.DefaultPageSize,
		MaxConcurrency: batch.MaxConcurrency,
		DetailTimeout:  batch.Timeout,
		FilterMode:     filter.ModeSubstring,
	}
}

// Pokedex is the paginated listing controller.
type Pokedex struct {
	source Source
	batch  *pagination.BatchFetcher[*pokeapi.Pokemon]
	logger zerolog.Logger

	mu      sync.RWMutex
	records []pokeapi.Pokemon
	cursor  pagination.Cursor
	total   int
	loading bool
	search  string
	mode    filter.Mode
}

// New creates a controller with an empty list and the cursor at 0.
func New(source Source, cfg Config) (*Pokedex, error) {
	if source == nil {
		return nil, fmt.Errorf("source is required")
	}
	if cfg.PageSize < 0 {
		return nil, fmt.Errorf("page_size must be >= 0 (got %d)", cfg.PageSize)
	}
	if cfg.MaxConcurrency < 0 {
		return nil, fmt.Errorf("max_concurrency must be >= 0 (got %d)", cfg.MaxConcurrency)
	}

	mode, err := filter.ParseMode(string(cfg.FilterMode))
	if err != nil {
		return nil, err
	}

	batch := pagination.NewBatchFetcher[*pokeapi.Pokemon](source.GetPokemon, pagination.Config{
		MaxConcurrency: cfg.MaxConcurrency,
		Timeout:        cfg.DetailTimeout,
	})

	return &Pokedex{
		source:  source,
		batch:   batch,
		logger:  log.With().Str("component", "pokedex").Logger(),
		records: []pokeapi.Pokemon{},
		cursor:  pagination.NewCursor(cfg.PageSize),
		mode:    mode,
	}, nil
}

// FetchPage loads one page. An initial fetch starts at offset 0 and replaces
// the list; otherwise the page at the cursor is appended. On success the
// cursor ends one page past the fetched offset. On failure list and cursor
// are unchanged and a *FetchError is returned. The loading flag is set for
// the duration of the call and always cleared.
func (p *Pokedex) FetchPage(ctx context.Context, initial bool) error {
	kind := "more"
	if initial {
		kind = "initial"
	}

	p.mu.Lock()
	if p.loading {
		p.mu.Unlock()
		pageFetchesTotal.WithLabelValues(kind, "busy").Inc()
		return ErrFetchInProgress
	}
	p.loading = true
	offset := p.cursor.Next(initial)
	pageSize := p.cursor.PageSize
	p.mu.Unlock()

	start := time.Now()
	page, total, err := p.load(ctx, offset, pageSize)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.loading = false

	if err != nil {
		pageFetchesTotal.WithLabelValues(kind, "error").Inc()
		p.logger.Error().
			Err(err).
			Int("offset", offset).
			Str("error_class", string(pokeapi.ClassOf(err))).
			Msg("Page fetch failed")
		return err
	}

	if initial {
		p.records = page
		p.cursor = p.cursor.Reset().Advance()
	} else {
		p.records = append(p.records, page...)
		p.cursor = p.cursor.Advance()
	}
	p.total = total

	pageFetchesTotal.WithLabelValues(kind, "ok").Inc()
	pageFetchDuration.Observe(time.Since(start).Seconds())
	recordsLoaded.Set(float64(len(p.records)))

	p.logger.Info().
		Bool("initial", initial).
		Int("offset", offset).
		Int("count", len(page)).
		Int("records", len(p.records)).
		Dur("duration", time.Since(start)).
		Msg("Page loaded")

	return nil
}

// load lists one page and resolves its details without touching state.
func (p *Pokedex) load(ctx context.Context, offset, pageSize int) ([]pokeapi.Pokemon, int, error) {
	list, err := p.source.ListPokemon(ctx, offset, pageSize)
	if err != nil {
		return nil, 0, &FetchError{Stage: StageList, Offset: offset, Err: err}
	}

	urls := make([]string, len(list.Results))
	for i, r := range list.Results {
		urls[i] = r.URL
	}

	details, err := p.batch.FetchAll(ctx, urls)
	if err != nil {
		return nil, 0, &FetchError{Stage: StageDetail, Offset: offset, Err: err}
	}

	page := make([]pokeapi.Pokemon, 0, len(details))
	for i, d := range details {
		if d == nil {
			return nil, 0, &FetchError{
				Stage:  StageDetail,
				Offset: offset,
				Err:    fmt.Errorf("empty record for %s", urls[i]),
			}
		}
		page = append(page, *d)
	}

	return page, list.Count, nil
}

// LoadInitial replaces the list with the first page.
func (p *Pokedex) LoadInitial(ctx context.Context) error {
	return p.FetchPage(ctx, true)
}

// LoadMore appends the page at the cursor. It returns ErrNoMorePages once
// the cursor has passed the total the API reported.
func (p *Pokedex) LoadMore(ctx context.Context) error {
	p.mu.RLock()
	exhausted := p.cursor.Exhausted(p.total)
	p.mu.RUnlock()

	if exhausted {
		return ErrNoMorePages
	}
	return p.FetchPage(ctx, false)
}

// IsUpstreamError reports whether err came from a failed page fetch rather
// than from the controller refusing the call.
func IsUpstreamError(err error) bool {
	var fetchErr *FetchError
	return errors.As(err, &fetchErr)
}

// Records returns a copy of the accumulated list.
func (p *Pokedex) Records() []pokeapi.Pokemon {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]pokeapi.Pokemon(nil), p.records...)
}

// Len returns the number of accumulated records.
func (p *Pokedex) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.records)
}

// Cursor returns the pagination cursor.
func (p *Pokedex) Cursor() pagination.Cursor {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cursor
}

// Total returns the record count the API last reported, 0 before the first
// successful fetch.
func (p *Pokedex) Total() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.total
}

// Loading reports whether a fetch is in flight.
func (p *Pokedex) Loading() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.loading
}

// SearchTerm returns the stored search term.
func (p *Pokedex) SearchTerm() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.search
}

// SetSearchTerm stores the term View filters with.
func (p *Pokedex) SetSearchTerm(term string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.search = term
}

// FilterMode returns the stored filter mode.
func (p *Pokedex) FilterMode() filter.Mode {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.mode
}

// SetFilterMode stores the mode View and Filter use.
func (p *Pokedex) SetFilterMode(mode filter.Mode) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mode = mode
}

// View returns the records matching the stored search term.
func (p *Pokedex) View() []pokeapi.Pokemon {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return filter.Apply(p.mode, p.records, p.search, pokemonName)
}

// Filter returns the records matching term with the stored mode. The stored
// search term is not changed.
func (p *Pokedex) Filter(term string) []pokeapi.Pokemon {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return filter.Apply(p.mode, p.records, term, pokemonName)
}

// Snapshot is a consistent view of the controller state.
type Snapshot struct {
	Cards     []Card            `json:"cards"`
	Total     int               `json:"total"`
	Matched   int               `json:"matched"`
	Available int               `json:"available"`
	Cursor    pagination.Cursor `json:"cursor"`
	Loading   bool              `json:"loading"`
	Search    string            `json:"search"`
	Mode      filter.Mode       `json:"mode"`
}

// Snapshot returns the filtered cards together with the list metadata,
// all read under one lock.
func (p *Pokedex) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	view := filter.Apply(p.mode, p.records, p.search, pokemonName)
	return Snapshot{
		Cards:     Cards(view),
		Total:     len(p.records),
		Matched:   len(view),
		Available: p.total,
		Cursor:    p.cursor,
		Loading:   p.loading,
		Search:    p.search,
		Mode:      p.mode,
	}
}

func pokemonName(p pokeapi.Pokemon) string {
	return p.Name
}
