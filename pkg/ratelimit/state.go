// Package ratelimit tracks the Twitch API rate-limit bucket and gates requests.
// It reads the Ratelimit-Limit, Ratelimit-Remaining and Ratelimit-Reset
// headers and shares the state between processes through Redis.
package ratelimit

import (
	"time"
)

// Redis keys for rate limit state storage.
const (
	RedisKeyPointsRemaining = "twitch:rate_limit:remaining"
	RedisKeyLimit           = "twitch:rate_limit:limit"
	RedisKeyResetTimestamp  = "twitch:rate_limit:reset_timestamp"
	RedisKeyLastUpdate      = "twitch:rate_limit:last_update"
)

// Thresholds for rate limit decisions.
const (
	// ThresholdCritical blocks all requests when remaining points fall below this value.
	ThresholdCritical = 5

	// ThresholdWarning throttles requests when remaining points fall below this value.
	ThresholdWarning = 20

	// ThresholdHealthy indicates normal operation.
	ThresholdHealthy = 50
)

// DefaultLimit is assumed until the API reports the bucket size.
const DefaultLimit = 800

// RateLimitState is the current rate-limit bucket.
type RateLimitState struct {
	// PointsRemaining is taken from the Ratelimit-Remaining header.
	PointsRemaining int `json:"points_remaining"`

	// Limit is the bucket size from the Ratelimit-Limit header.
	Limit int `json:"limit"`

	// ResetAt is when the bucket refills (Ratelimit-Reset, unix seconds).
	ResetAt time.Time `json:"reset_at"`

	// LastUpdate is when this state was last updated.
	LastUpdate time.Time `json:"last_update"`

	// IsHealthy is true when PointsRemaining >= ThresholdHealthy.
	IsHealthy bool `json:"is_healthy"`
}

// IsStale returns true if the state is older than maxAge.
func (s *RateLimitState) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// NeedsCriticalBlock returns true if requests must be blocked.
// A bucket whose reset time has passed is considered refilled.
func (s *RateLimitState) NeedsCriticalBlock() bool {
	return s.PointsRemaining < ThresholdCritical && s.TimeUntilReset() > 0
}

// NeedsThrottling returns true if requests should be slowed down.
func (s *RateLimitState) NeedsThrottling() bool {
	return s.PointsRemaining < ThresholdWarning && s.TimeUntilReset() > 0 && !s.NeedsCriticalBlock()
}

// TimeUntilReset returns the duration until the bucket refills, or 0.
func (s *RateLimitState) TimeUntilReset() time.Duration {
	duration := time.Until(s.ResetAt)
	if duration < 0 {
		return 0
	}
	return duration
}

// UpdateHealth updates IsHealthy from PointsRemaining.
func (s *RateLimitState) UpdateHealth() {
	s.IsHealthy = s.PointsRemaining >= ThresholdHealthy
}
