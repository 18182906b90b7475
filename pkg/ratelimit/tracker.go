package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for rate limit tracking.
var (
	rateLimitRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pokeapi_rate_limit_remaining",
		Help: "Requests remaining in the current upstream rate limit window",
	})

	rateLimitBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pokeapi_rate_limit_blocks_total",
		Help: "Total number of requests blocked due to an exhausted rate limit",
	})

	rateLimitThrottlesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pokeapi_rate_limit_throttles_total",
		Help: "Total number of requests throttled due to a low rate limit budget",
	})
)

// DefaultThrottleDelay is the pause applied to each request in the warning zone.
const DefaultThrottleDelay = 1 * time.Second

// Tracker monitors upstream rate limits and gates requests.
type Tracker struct {
	mu            sync.RWMutex
	state         RateLimitState
	throttleDelay time.Duration
	logger        zerolog.Logger
}

// NewTracker creates a new rate limit tracker.
func NewTracker(logger zerolog.Logger) *Tracker {
	return &Tracker{
		throttleDelay: DefaultThrottleDelay,
		logger:        logger,
	}
}

// SetThrottleDelay overrides DefaultThrottleDelay.
func (t *Tracker) SetThrottleDelay(d time.Duration) {
	t.mu.Lock()
	t.throttleDelay = d
	t.mu.Unlock()
}

// GetState returns a copy of the current rate limit state.
func (t *Tracker) GetState() RateLimitState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// UpdateFromHeaders records rate limit information from a response.
// Responses without rate limit headers leave the state untouched, except a
// 429 which always opens a block window.
func (t *Tracker) UpdateFromHeaders(statusCode int, headers http.Header) error {
	now := time.Now()

	if statusCode == http.StatusTooManyRequests {
		retryAfter := parseRetryAfter(headers.Get(HeaderRetryAfter), now)

		t.mu.Lock()
		t.state.BlockedUntil = now.Add(retryAfter)
		t.state.LastUpdate = now
		t.mu.Unlock()

		t.logger.Warn().
			Dur("retry_after", retryAfter).
			Msg("Upstream returned 429 - requests will be blocked")
	}

	remainStr := headers.Get(HeaderRemaining)
	if remainStr == "" {
		return nil
	}

	remain, err := strconv.Atoi(strings.TrimSpace(remainStr))
	if err != nil {
		return fmt.Errorf("parse %s header: %w", HeaderRemaining, err)
	}

	limit := 0
	if limitStr := headers.Get(HeaderLimit); limitStr != "" {
		limit, err = strconv.Atoi(strings.TrimSpace(limitStr))
		if err != nil {
			return fmt.Errorf("parse %s header: %w", HeaderLimit, err)
		}
	}

	resetAt := now
	if resetStr := headers.Get(HeaderReset); resetStr != "" {
		resetSeconds, err := strconv.Atoi(strings.TrimSpace(resetStr))
		if err != nil {
			return fmt.Errorf("parse %s header: %w", HeaderReset, err)
		}
		resetAt = now.Add(time.Duration(resetSeconds) * time.Second)
	}

	t.mu.Lock()
	t.state.Known = true
	t.state.Remaining = remain
	t.state.Limit = limit
	t.state.ResetAt = resetAt
	t.state.LastUpdate = now
	state := t.state
	t.mu.Unlock()

	rateLimitRemaining.Set(float64(remain))

	switch {
	case state.NeedsCriticalBlock():
		t.logger.Error().
			Int("remaining", remain).
			Time("reset_at", resetAt).
			Msg("Rate limit exhausted - requests will be blocked")
	case state.NeedsThrottling():
		t.logger.Warn().
			Int("remaining", remain).
			Int("limit", limit).
			Msg("Rate limit low - requests will be throttled")
	default:
		t.logger.Debug().
			Int("remaining", remain).
			Int("limit", limit).
			Msg("Rate limit state updated")
	}

	return nil
}

// ShouldAllowRequest checks if a request should be allowed based on current rate limit state.
// Returns false if the request should be blocked.
// Returns true but may wait for throttling in the warning zone; the wait
// honours ctx cancellation.
func (t *Tracker) ShouldAllowRequest(ctx context.Context) (bool, error) {
	t.mu.RLock()
	state := t.state
	delay := t.throttleDelay
	t.mu.RUnlock()

	if state.NeedsCriticalBlock() {
		t.logger.Error().
			Int("remaining", state.Remaining).
			Dur("wait_duration", state.TimeUntilReset()).
			Msg("Rate limit exhausted - blocking request")

		rateLimitBlocksTotal.Inc()
		return false, nil
	}

	if state.NeedsThrottling() && delay > 0 {
		t.logger.Warn().
			Int("remaining", state.Remaining).
			Dur("delay", delay).
			Msg("Rate limit low - throttling request")

		rateLimitThrottlesTotal.Inc()

		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return false, fmt.Errorf("throttle wait: %w", ctx.Err())
		case <-timer.C:
		}
	}

	return true, nil
}

// parseRetryAfter accepts both delta-seconds and HTTP-date forms.
func parseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return DefaultRetryAfter
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds >= 0 {
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
		return 0
	}
	return DefaultRetryAfter
}
