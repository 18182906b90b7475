package cache

import (
	"context"
	"time"
)

// Store is a byte-oriented key/value backend with per-key expiry.
// Get must return ErrCacheMiss for absent or expired keys.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error

	// Name is the metrics layer label of the store.
	Name() string

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
}
