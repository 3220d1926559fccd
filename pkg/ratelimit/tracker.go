package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for rate limit tracking.
var (
	pointsRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "streamlist_rate_limit_remaining",
		Help: "Points remaining in the current Twitch rate limit bucket",
	})

	rateLimitBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "streamlist_rate_limit_blocks_total",
		Help: "Total number of requests blocked because the bucket is nearly empty",
	})

	rateLimitThrottlesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "streamlist_rate_limit_throttles_total",
		Help: "Total number of requests throttled because the bucket is low",
	})
)

// stateKeys are read together; the order matches the fields of GetState.
var stateKeys = []string{RedisKeyPointsRemaining, RedisKeyLimit, RedisKeyResetTimestamp, RedisKeyLastUpdate}

// DefaultThrottle is how long a request waits in the warning state.
const DefaultThrottle = 1 * time.Second

// Tracker monitors the rate limit bucket and gates requests.
type Tracker struct {
	redis    *redis.Client
	logger   zerolog.Logger
	throttle time.Duration
}

// NewTracker creates a new rate limit tracker.
func NewTracker(redisClient *redis.Client, logger zerolog.Logger) *Tracker {
	return &Tracker{
		redis:    redisClient,
		logger:   logger,
		throttle: DefaultThrottle,
	}
}

// SetThrottle changes the warning-state delay.
func (t *Tracker) SetThrottle(d time.Duration) {
	t.throttle = d
}

// GetState reads the shared bucket from Redis in one round trip. A bucket
// nobody has recorded yet is reported full and healthy.
func (t *Tracker) GetState(ctx context.Context) (*RateLimitState, error) {
	vals, err := t.redis.MGet(ctx, stateKeys...).Result()
	if err != nil {
		return nil, fmt.Errorf("read rate limit state: %w", err)
	}

	now := time.Now()
	if vals[0] == nil {
		t.logger.Debug().Msg("No rate limit state recorded, assuming a full bucket")
		return &RateLimitState{
			PointsRemaining: DefaultLimit,
			Limit:           DefaultLimit,
			ResetAt:         now.Add(time.Minute),
			LastUpdate:      now,
			IsHealthy:       true,
		}, nil
	}

	fields := make([]int64, len(vals))
	for i, v := range vals {
		if v == nil {
			continue
		}
		if fields[i], err = strconv.ParseInt(fmt.Sprint(v), 10, 64); err != nil {
			return nil, fmt.Errorf("parse %s: %w", stateKeys[i], err)
		}
	}

	state := &RateLimitState{
		PointsRemaining: int(fields[0]),
		Limit:           int(fields[1]),
		ResetAt:         time.Unix(fields[2], 0),
		LastUpdate:      time.UnixMilli(fields[3]),
	}
	if state.Limit == 0 {
		state.Limit = DefaultLimit
	}
	state.UpdateHealth()
	return state, nil
}

// ParseHeaders extracts the rate limit state from response headers.
// ok is false when the response carries no rate limit headers.
func ParseHeaders(headers http.Header, now time.Time) (state *RateLimitState, ok bool, err error) {
	remainStr := headers.Get("Ratelimit-Remaining")
	if remainStr == "" {
		return nil, false, nil
	}

	remain, err := strconv.Atoi(remainStr)
	if err != nil {
		return nil, false, fmt.Errorf("parse Ratelimit-Remaining header: %w", err)
	}

	resetStr := headers.Get("Ratelimit-Reset")
	if resetStr == "" {
		return nil, false, fmt.Errorf("Ratelimit-Reset header missing")
	}
	resetUnix, err := strconv.ParseInt(resetStr, 10, 64)
	if err != nil {
		return nil, false, fmt.Errorf("parse Ratelimit-Reset header: %w", err)
	}

	limit := DefaultLimit
	if limitStr := headers.Get("Ratelimit-Limit"); limitStr != "" {
		if limit, err = strconv.Atoi(limitStr); err != nil {
			return nil, false, fmt.Errorf("parse Ratelimit-Limit header: %w", err)
		}
	}

	state = &RateLimitState{
		PointsRemaining: remain,
		Limit:           limit,
		ResetAt:         time.Unix(resetUnix, 0),
		LastUpdate:      now,
	}
	state.UpdateHealth()

	return state, true, nil
}

// UpdateFromHeaders parses rate limit headers and stores the state in Redis.
func (t *Tracker) UpdateFromHeaders(ctx context.Context, headers http.Header) error {
	state, ok, err := ParseHeaders(headers, time.Now())
	if err != nil || !ok {
		return err
	}

	err = t.redis.MSet(ctx,
		RedisKeyPointsRemaining, state.PointsRemaining,
		RedisKeyLimit, state.Limit,
		RedisKeyResetTimestamp, state.ResetAt.Unix(),
		RedisKeyLastUpdate, state.LastUpdate.UnixMilli(),
	).Err()
	if err != nil {
		return fmt.Errorf("store rate limit state: %w", err)
	}

	pointsRemaining.Set(float64(state.PointsRemaining))

	switch {
	case state.NeedsCriticalBlock():
		t.logger.Error().
			Int("points_remaining", state.PointsRemaining).
			Time("reset_at", state.ResetAt).
			Msg("Rate limit CRITICAL - requests will be blocked")
	case state.NeedsThrottling():
		t.logger.Warn().
			Int("points_remaining", state.PointsRemaining).
			Time("reset_at", state.ResetAt).
			Msg("Rate limit WARNING - requests will be throttled")
	default:
		t.logger.Debug().
			Int("points_remaining", state.PointsRemaining).
			Int("limit", state.Limit).
			Bool("is_healthy", state.IsHealthy).
			Msg("Rate limit state updated")
	}

	return nil
}

// ShouldAllowRequest reports whether a request may be sent now. In the warning
// state it waits for the throttle delay first.
func (t *Tracker) ShouldAllowRequest(ctx context.Context) (bool, error) {
	state, err := t.GetState(ctx)
	if err != nil {
		return false, fmt.Errorf("get rate limit state: %w", err)
	}

	if state.NeedsCriticalBlock() {
		t.logger.Error().
			Int("points_remaining", state.PointsRemaining).
			Dur("wait_duration", state.TimeUntilReset()).
			Msg("Rate limit critical - blocking request")

		rateLimitBlocksTotal.Inc()
		return false, nil
	}

	if state.NeedsThrottling() {
		t.logger.Warn().
			Int("points_remaining", state.PointsRemaining).
			Msg("Rate limit warning - throttling request")

		rateLimitThrottlesTotal.Inc()
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(t.throttle):
		}
	}

	return true, nil
}
