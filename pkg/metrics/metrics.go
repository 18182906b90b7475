// Package metrics exposes the Prometheus registry shared by all packages.
// Metrics are defined next to the code that records them (pokeapi, cache,
// ratelimit, pagination, pokedex) and registered via promauto.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the client.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Gatherer collects what Registry holds.
var Gatherer = prometheus.DefaultGatherer

// Handler serves Gatherer in the Prometheus exposition format. The handler's
// own scrape metrics are registered on Registry.
func Handler() http.Handler {
	return promhttp.InstrumentMetricHandler(
		Registry,
		promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{}),
	)
}

// Metrics Documentation
//
// Request Metrics (pkg/pokeapi):
//   - pokeapi_requests_total{endpoint, status} (Counter): Requests by endpoint and status
//     (HTTP code, "cache", "rate_limited" or "network_error")
//   - pokeapi_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - pokeapi_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network, decode)
//
// Cache Metrics (pkg/cache):
//   - pokeapi_cache_hits_total{layer, state} (Counter): Hits by store and freshness
//   - pokeapi_cache_misses_total (Counter): Cache misses
//   - pokeapi_cache_written_bytes_total{layer} (Counter): Bytes written by store
//   - pokeapi_304_responses_total (Counter): 304 Not Modified responses
//   - pokeapi_conditional_requests_total (Counter): Conditional requests sent
//   - pokeapi_cache_errors_total{operation} (Counter): Cache operation errors
//
// Rate Limit Metrics (pkg/ratelimit):
//   - pokeapi_rate_limit_remaining (Gauge): Requests remaining in the upstream window
//   - pokeapi_rate_limit_blocks_total (Counter): Requests blocked locally
//   - pokeapi_rate_limit_throttles_total (Counter): Requests delayed in the warning zone
//
// Listing Metrics (pkg/pagination, pkg/pokedex):
//   - pokedex_batch_duration_seconds (Histogram): Detail batch duration
//   - pokedex_batch_items_total{result} (Counter): Batch items by result (ok, error)
//   - pokedex_page_fetches_total{kind, result} (Counter): Page fetches by kind and result
//   - pokedex_page_fetch_duration_seconds (Histogram): Successful page fetch duration
//   - pokedex_records (Gauge): Records in the accumulated list
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(pokeapi_cache_hits_total[5m])) /
//   (sum(rate(pokeapi_cache_hits_total[5m])) + sum(rate(pokeapi_cache_misses_total[5m])))
//
//   # Failed page loads
//   rate(pokedex_page_fetches_total{result="error"}[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(pokeapi_request_duration_seconds_bucket[5m]))
//
//   # 304 Response Rate
//   rate(pokeapi_304_responses_total[5m]) / rate(pokeapi_requests_total[5m])
