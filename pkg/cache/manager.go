package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrCacheMiss indicates the requested key was not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the cache entry is invalid or corrupted
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// DefaultStaleRetention is how long an expired entry with validators is kept
// around so it can be revalidated with a conditional request.
const DefaultStaleRetention = 1 * time.Hour

// Option configures a Manager.
type Option func(*Manager)

// WithStaleRetention overrides DefaultStaleRetention. Zero disables
// revalidation of expired entries.
func WithStaleRetention(d time.Duration) Option {
	return func(m *Manager) {
		if d >= 0 {
			m.staleRetention = d
		}
	}
}

// Manager handles caching operations on top of a Store.
type Manager struct {
	store          Store
	staleRetention time.Duration
}

// NewManager creates a new cache manager on the given store.
func NewManager(store Store, opts ...Option) *Manager {
	if store == nil {
		panic("cache store cannot be nil")
	}
	m := &Manager{
		store:          store,
		staleRetention: DefaultStaleRetention,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Store returns the backing store.
func (m *Manager) Store() Store {
	return m.store
}

// Get retrieves a cache entry by key.
// Returns ErrCacheMiss if the key doesn't exist or the entry is expired and
// cannot be revalidated. Callers must check IsExpired on the returned entry:
// a stale entry is only good for a conditional request.
func (m *Manager) Get(ctx context.Context, key CacheKey) (*CacheEntry, error) {
	cacheKey := key.String()
	layer := m.store.Name()

	data, err := m.store.Get(ctx, cacheKey)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			CacheMisses.Inc()
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("store get: %w", err)
	}

	var entry CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	state := entry.State()
	if state == StateDead {
		_ = m.Delete(ctx, key)
		CacheMisses.Inc()
		return nil, ErrCacheMiss
	}

	CacheHits.WithLabelValues(layer, string(state)).Inc()
	return &entry, nil
}

// Set stores a cache entry with TTL based on the entry's Expires field,
// extended by the stale retention when the entry carries validators.
func (m *Manager) Set(ctx context.Context, key CacheKey, entry *CacheEntry) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}

	ttl := entry.TTL()
	if entry.Revalidatable() {
		ttl += m.staleRetention
	}
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := m.store.Set(ctx, key.String(), data, ttl); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("store set: %w", err)
	}

	CacheWrittenBytes.WithLabelValues(m.store.Name()).Add(float64(len(data)))
	return nil
}

// Delete removes a cache entry.
func (m *Manager) Delete(ctx context.Context, key CacheKey) error {
	if err := m.store.Delete(ctx, key.String()); err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("store delete: %w", err)
	}
	return nil
}

// UpdateTTL updates the expiry of an existing cache entry.
// This is used when a 304 Not Modified response carries new freshness headers.
func (m *Manager) UpdateTTL(ctx context.Context, key CacheKey, newExpires time.Time) error {
	entry, err := m.Get(ctx, key)
	if err != nil {
		return err
	}

	entry.Expires = newExpires

	return m.Set(ctx, key, entry)
}

// Ping checks the backing store.
func (m *Manager) Ping(ctx context.Context) error {
	return m.store.Ping(ctx)
}
