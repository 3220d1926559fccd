package twitch

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
)

// RetryConfig controls how often and how patiently a failure class is
// retried.
type RetryConfig struct {
	// MaxAttempts counts the initial request.
	MaxAttempts int

	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
}

// Backoff returns the wait before the n-th retry (n >= 1), without jitter.
func (c RetryConfig) Backoff(n int) time.Duration {
	d := float64(c.InitialBackoff) * math.Pow(c.BackoffMultiplier, float64(n-1))
	if d > float64(c.MaxBackoff) {
		return c.MaxBackoff
	}
	return time.Duration(d)
}

// RetryPolicy picks the retry configuration for a failure class.
type RetryPolicy func(ErrorClass) RetryConfig

// DefaultRetryConfig applies to classes without their own entry.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2,
	}
}

var retryConfigs = map[ErrorClass]RetryConfig{
	ErrorClassServer:  {MaxAttempts: 3, InitialBackoff: time.Second, MaxBackoff: 10 * time.Second, BackoffMultiplier: 2},
	ErrorClassNetwork: {MaxAttempts: 3, InitialBackoff: 2 * time.Second, MaxBackoff: 30 * time.Second, BackoffMultiplier: 2},

	// The Kraken bucket refills within a minute.
	ErrorClassRateLimit: {MaxAttempts: 3, InitialBackoff: 5 * time.Second, MaxBackoff: time.Minute, BackoffMultiplier: 2},
}

// RetryConfigForErrorClass is the default RetryPolicy.
func RetryConfigForErrorClass(class ErrorClass) RetryConfig {
	if cfg, ok := retryConfigs[class]; ok {
		return cfg
	}
	return DefaultRetryConfig()
}

// jitter spreads d by ±20% so clients sharing a rate limit do not retry in
// lockstep.
func jitter(d time.Duration) time.Duration {
	return time.Duration(float64(d) * (0.8 + rand.Float64()*0.4))
}

// retryWithBackoff calls fn until it succeeds, fails with a class that is not
// retried, or the attempts allowed for the latest class are used up. The
// backoff restarts whenever the failure class changes.
func retryWithBackoff(ctx context.Context, logger zerolog.Logger, policy RetryPolicy, fn func() (ErrorClass, error)) error {
	if policy == nil {
		policy = RetryConfigForErrorClass
	}

	var (
		class  ErrorClass
		streak int
	)
	for attempt := 1; ; attempt++ {
		c, err := fn()
		if err == nil {
			if attempt > 1 {
				logger.Info().Str("error_class", string(class)).Int("attempt", attempt).Msg("Request succeeded after retry")
			}
			return nil
		}
		if !shouldRetry(c) {
			return err
		}

		if c != class {
			class, streak = c, 0
		}
		streak++
		cfg := policy(class)
		label := string(class)

		if attempt >= cfg.MaxAttempts {
			apiRetryExhaustedTotal.WithLabelValues(label).Inc()
			logger.Warn().Str("error_class", label).Int("max_attempts", cfg.MaxAttempts).Msg("Retry attempts exhausted")
			return fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, attempt, err)
		}

		wait := jitter(cfg.Backoff(streak))
		apiRetriesTotal.WithLabelValues(label).Inc()
		apiRetryBackoffSeconds.WithLabelValues(label).Observe(wait.Seconds())
		logger.Debug().Str("error_class", label).Int("attempt", attempt).Dur("backoff", wait).Msg("Retrying request")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Warn().Str("error_class", label).Int("attempt", attempt).Msg("Context cancelled during retry backoff")
			return fmt.Errorf("%w: %w", ErrContextCancelled, ctx.Err())
		case <-timer.C:
		}
	}
}
