package cache

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

type memoryItem struct {
	data      []byte
	expiresAt time.Time
}

// MemoryStore keeps entries in process memory. Expired entries are evicted
// lazily on read and by Prune.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]memoryItem
	now   func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: make(map[string]memoryItem),
		now:   time.Now,
	}
}

// Get returns a copy of the stored bytes.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	item, ok := s.items[key]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrCacheMiss
	}
	if !s.now().Before(item.expiresAt) {
		s.mu.Lock()
		// Re-check: a concurrent Set may have replaced the item
		if current, ok := s.items[key]; ok && !s.now().Before(current.expiresAt) {
			delete(s.items, key)
		}
		s.mu.Unlock()
		return nil, ErrCacheMiss
	}

	out := make([]byte, len(item.data))
	copy(out, item.data)
	return out, nil
}

// Set stores a copy of data for ttl. Non-positive TTLs are ignored.
func (s *MemoryStore) Set(_ context.Context, key string, data []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	stored := make([]byte, len(data))
	copy(stored, data)

	s.mu.Lock()
	s.items[key] = memoryItem{data: stored, expiresAt: s.now().Add(ttl)}
	s.mu.Unlock()
	return nil
}

// Delete removes a key. Deleting an absent key is not an error.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.items, key)
	s.mu.Unlock()
	return nil
}

// Prune evicts every expired item and returns how many were removed.
func (s *MemoryStore) Prune() int {
	now := s.now()
	removed := 0

	s.mu.Lock()
	defer s.mu.Unlock()
	for key, item := range s.items {
		if !now.Before(item.expiresAt) {
			delete(s.items, key)
			removed++
		}
	}
	return removed
}

// RunPruner calls Prune every interval until ctx is done. Long-running
// processes use it to drop entries that are never read again.
func (s *MemoryStore) RunPruner(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Prune(); n > 0 {
				log.Debug().Str("component", "cache").Int("count", n).Msg("Pruned expired entries")
			}
		}
	}
}

// Len returns the number of stored items, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Name implements Store.
func (s *MemoryStore) Name() string { return "memory" }

// Ping implements Store. Memory is always reachable.
func (s *MemoryStore) Ping(context.Context) error { return nil }
