// Package ratelimit implements upstream rate limit tracking and request gating.
// It monitors the X-RateLimit-* headers and Retry-After on 429 responses so the
// client backs off before the upstream starts rejecting requests.
package ratelimit

import (
	"time"
)

// Response headers read by the tracker.
const (
	HeaderLimit      = "X-RateLimit-Limit"
	HeaderRemaining  = "X-RateLimit-Remaining"
	HeaderReset      = "X-RateLimit-Reset"
	HeaderRetryAfter = "Retry-After"
)

// WarningRatio applies throttling when the remaining budget drops below this
// fraction of the limit.
const WarningRatio = 0.1

// DefaultRetryAfter is the block window after a 429 without a usable Retry-After.
const DefaultRetryAfter = 60 * time.Second

// RateLimitState represents the most recent rate limit information.
type RateLimitState struct {
	// Known is false until a response carried rate limit headers.
	Known bool `json:"known"`

	// Limit is the request budget per window (X-RateLimit-Limit).
	Limit int `json:"limit"`

	// Remaining is the budget left in the current window (X-RateLimit-Remaining).
	Remaining int `json:"remaining"`

	// ResetAt is when the current window ends (from X-RateLimit-Reset seconds).
	ResetAt time.Time `json:"reset_at"`

	// BlockedUntil is set from Retry-After after a 429 response.
	BlockedUntil time.Time `json:"blocked_until"`

	// LastUpdate is the timestamp when this state was last updated.
	LastUpdate time.Time `json:"last_update"`
}

// NeedsCriticalBlock returns true if requests should be blocked: inside a
// Retry-After window, or with no budget left before the window resets.
func (s *RateLimitState) NeedsCriticalBlock() bool {
	now := time.Now()
	if now.Before(s.BlockedUntil) {
		return true
	}
	return s.Known && s.Remaining <= 0 && now.Before(s.ResetAt)
}

// NeedsThrottling returns true if requests should be slowed down. A low
// budget only counts until the window it belongs to resets.
func (s *RateLimitState) NeedsThrottling() bool {
	if !s.Known || s.Limit <= 0 || s.NeedsCriticalBlock() {
		return false
	}
	if !time.Now().Before(s.ResetAt) {
		return false
	}
	return float64(s.Remaining) < float64(s.Limit)*WarningRatio
}

// TimeUntilReset returns the duration until requests may resume.
// Returns 0 if nothing is blocking.
func (s *RateLimitState) TimeUntilReset() time.Duration {
	until := s.ResetAt
	if s.BlockedUntil.After(until) {
		until = s.BlockedUntil
	}
	duration := time.Until(until)
	if duration < 0 {
		return 0
	}
	return duration
}
