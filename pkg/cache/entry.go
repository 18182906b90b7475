package cache

import (
	"net/http"
	"time"
)

// CacheEntry is one stored PokeAPI response: the body plus what is needed to
// replay it and to revalidate it once it goes stale.
type CacheEntry struct {
	Data       []byte      `json:"data"`
	StatusCode int         `json:"status_code"`
	Headers    http.Header `json:"headers"`

	// Validators sent back as If-None-Match / If-Modified-Since
	ETag         string    `json:"etag"`
	LastModified time.Time `json:"last_modified"`

	Expires  time.Time `json:"expires"`
	CachedAt time.Time `json:"cached_at"`
}

// EntryState classifies an entry at lookup time.
type EntryState string

const (
	// StateFresh entries are served without contacting PokeAPI.
	StateFresh EntryState = "fresh"
	// StateStale entries are expired but carry a validator.
	StateStale EntryState = "stale"
	// StateDead entries are expired and cannot be revalidated.
	StateDead EntryState = "dead"
)

// State reports whether the entry is fresh, revalidatable or useless.
func (e *CacheEntry) State() EntryState {
	switch {
	case !e.IsExpired():
		return StateFresh
	case e.Revalidatable():
		return StateStale
	default:
		return StateDead
	}
}

// IsExpired reports whether Expires has passed.
func (e *CacheEntry) IsExpired() bool {
	return time.Now().After(e.Expires)
}

// TTL is the remaining freshness, never negative.
func (e *CacheEntry) TTL() time.Duration {
	return max(time.Until(e.Expires), 0)
}

// Age is how long ago the response was stored, in whole seconds.
func (e *CacheEntry) Age() time.Duration {
	if e.CachedAt.IsZero() {
		return 0
	}
	return max(time.Since(e.CachedAt).Truncate(time.Second), 0)
}

// Revalidatable reports whether a stale entry can be refreshed with a
// conditional request instead of a full download.
func (e *CacheEntry) Revalidatable() bool {
	return ShouldMakeConditionalRequest(e)
}
