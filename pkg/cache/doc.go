// Package cache provides HTTP response caching for PokeAPI requests with
// pluggable storage backends and ETag support for conditional requests.
//
// The cache manager implements HTTP-compliant caching with the following features:
//
// - Freshness from Cache-Control max-age, then Expires, then a fallback TTL
// - no-store responses are never cached
// - ETag support for conditional requests (If-None-Match)
// - Last-Modified support (If-Modified-Since)
// - Stale entries with validators are retained for revalidation
// - In-memory store by default, Redis store for sharing between processes
// - Prometheus metrics for observability
// - Deterministic cache key generation
//
// # Basic Usage
//
//	// Create cache manager backed by process memory
//	manager := cache.NewManager(cache.NewMemoryStore())
//
//	// Create cache key
//	key := cache.CacheKey{
//		Host:        "pokeapi.co",
//		Endpoint:    "/api/v2/pokemon",
//		QueryParams: url.Values{"limit": []string{"20"}, "offset": []string{"0"}},
//	}
//
//	// Get from cache
//	entry, err := manager.Get(ctx, key)
//	if err == cache.ErrCacheMiss {
//		// Cache miss - fetch from PokeAPI
//	}
//
// # Shared Cache
//
//	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	manager := cache.NewManager(cache.NewRedisStore(redisClient))
//
// # HTTP Response Caching
//
//	// Convert HTTP response to cache entry
//	entry, err := cache.ResponseToEntry(resp, cache.DefaultTTL)
//	if err != nil {
//		return err
//	}
//
//	// Store in cache
//	if err := manager.Set(ctx, key, entry); err != nil {
//		return err
//	}
//
// # Conditional Requests
//
//	if entry.IsExpired() && cache.ShouldMakeConditionalRequest(entry) {
//		cache.AddConditionalHeaders(req, entry)
//		// PokeAPI answers 304 if the resource did not change
//	}
//
// # Metrics
//
// The cache manager exports Prometheus metrics:
//
//   - pokeapi_cache_hits_total{layer,state} - Cache hits by store and freshness
//   - pokeapi_cache_misses_total - Cache misses
//   - pokeapi_cache_written_bytes_total{layer} - Bytes written to the store
//   - pokeapi_304_responses_total - Conditional request successes
//   - pokeapi_conditional_requests_total - Conditional requests sent
//   - pokeapi_cache_errors_total{operation} - Cache operation errors
package cache
