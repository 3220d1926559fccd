// Package twitch is a client for the Twitch Kraken API with rate limiting,
// response caching, retries and a circuit breaker, plus the fetch functions
// that plug its list endpoints into a paginator.
package twitch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/streamlist/pkg/cache"
	"github.com/Sternrassler/streamlist/pkg/ratelimit"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
)

// DefaultBaseURL is the Kraken API root.
const DefaultBaseURL = "https://api.twitch.tv/kraken"

// acceptV5 selects the v5 Kraken representation.
const acceptV5 = "application/vnd.twitchtv.v5+json"

// Client is the Twitch API client.
type Client struct {
	httpClient  *http.Client
	baseURL     *url.URL
	rateLimiter *ratelimit.Tracker
	cache       *cache.Manager
	breaker     *gobreaker.CircuitBreaker
	config      Config
	logger      zerolog.Logger
}

// BreakerConfig configures the circuit breaker.
type BreakerConfig struct {
	// ConsecutiveFailures trips the breaker. 0 disables it.
	ConsecutiveFailures uint32

	// Timeout is how long the breaker stays open before probing again.
	Timeout time.Duration

	// MaxRequests is the number of probes allowed while half-open.
	MaxRequests uint32
}

// Config holds the client configuration.
type Config struct {
	// Redis enables the shared response cache and rate limit state. Optional.
	Redis *redis.Client

	// BaseURL defaults to DefaultBaseURL.
	BaseURL string

	// ClientID is sent as the Client-ID header (REQUIRED by Twitch).
	ClientID string

	// UserAgent is sent when set.
	UserAgent string

	// Timeout bounds a single HTTP attempt.
	Timeout time.Duration

	// Revalidate sends a conditional request for every cached response
	// instead of serving fresh entries straight from the cache.
	Revalidate bool

	// Retry picks backoff per error class. Defaults to RetryConfigForErrorClass.
	Retry RetryPolicy

	Breaker BreakerConfig
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(redis *redis.Client, clientID string) Config {
	return Config{
		Redis:    redis,
		BaseURL:  DefaultBaseURL,
		ClientID: clientID,
		Timeout:  30 * time.Second,
		Retry:    RetryConfigForErrorClass,
		Breaker: BreakerConfig{
			ConsecutiveFailures: 5,
			Timeout:             30 * time.Second,
			MaxRequests:         1,
		},
	}
}

// New creates a new Twitch client.
func New(cfg Config) (*Client, error) {
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("client id is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url must be http or https (got %q)", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Retry == nil {
		cfg.Retry = RetryConfigForErrorClass
	}

	logger := log.With().Str("component", "twitch-client").Logger()

	c := &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    base,
		config:     cfg,
		logger:     logger,
	}

	if cfg.Redis != nil {
		c.rateLimiter = ratelimit.NewTracker(cfg.Redis, logger)
		if c.cache, err = cache.NewManager(cfg.Redis, logger); err != nil {
			return nil, err
		}
	}

	if cfg.Breaker.ConsecutiveFailures > 0 {
		c.breaker = newBreaker(cfg.Breaker, logger)
	}

	return c, nil
}

func newBreaker(cfg BreakerConfig, logger zerolog.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "twitch",
		MaxRequests: cfg.MaxRequests,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		IsSuccessful: func(err error) bool {
			// Only failures of the service itself count against it.
			return err == nil || !shouldRetry(ClassOf(err))
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			apiBreakerState.Set(float64(to))
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state changed")
		},
	})
}

// Do performs a request with rate limiting, caching, retries and the circuit
// breaker. Any status other than 2xx is returned as an *APIError.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	endpoint := c.endpoint(req.URL.Path)

	startTime := time.Now()
	defer func() {
		apiRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	if c.rateLimiter != nil {
		allowed, err := c.rateLimiter.ShouldAllowRequest(ctx)
		if err != nil {
			c.logger.Error().Err(err).Msg("Rate limit check failed")
			return nil, fmt.Errorf("rate limit check: %w", err)
		}
		if !allowed {
			c.logger.Warn().Str("endpoint", endpoint).Msg("Request blocked by rate limiter")
			apiRequestsTotal.WithLabelValues(endpoint, "rate_limited").Inc()
			return nil, ErrRequestBlocked
		}
	}

	cacheKey := cache.Key{
		Route: endpoint,
		Query: req.URL.Query(),
	}

	var cachedEntry *cache.Entry
	if c.cache != nil {
		entry, err := c.cache.Get(ctx, cacheKey)
		if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Cache get error")
		}
		cachedEntry = entry
	}

	if cachedEntry != nil && !c.config.Revalidate {
		c.logger.Debug().Str("endpoint", endpoint).Dur("ttl", cachedEntry.TTL(time.Now())).Msg("Serving from cache")
		apiRequestsTotal.WithLabelValues(endpoint, "cache_hit").Inc()
		return cachedEntry.Response(), nil
	}

	if cachedEntry != nil && cachedEntry.CanRevalidate() {
		cachedEntry.Revalidate(req)
		cache.ConditionalRequestsSent.Inc()
		c.logger.Debug().
			Str("endpoint", endpoint).
			Str("etag", cachedEntry.ETag).
			Msg("Making conditional request")
	}

	req.Header.Set("Client-ID", c.config.ClientID)
	req.Header.Set("Accept", acceptV5)
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("method", req.Method).
		Msg("Executing Twitch request")

	var resp *http.Response
	err := retryWithBackoff(ctx, c.logger, c.config.Retry, func() (ErrorClass, error) {
		r, class, err := c.attempt(req.Clone(ctx), endpoint)
		if err != nil {
			return class, err
		}
		resp = r
		return "", nil
	})
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusNotModified {
		resp.Body.Close()
		if cachedEntry == nil {
			return nil, &APIError{
				StatusCode: resp.StatusCode,
				ErrorClass: ErrorClassClient,
				Message:    "not modified without a cached response",
			}
		}

		c.logger.Debug().Str("endpoint", endpoint).Msg("304 Not Modified - using cache")
		cache.NotModifiedResponses.Inc()
		if err := c.cache.Refresh(ctx, cacheKey, cache.Expiry(resp.Header, time.Now())); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to refresh cache entry")
		}
		return cachedEntry.Response(), nil
	}

	if c.cache != nil && cache.Storable(resp) {
		entry, err := cache.NewEntry(resp, time.Now())
		if err != nil {
			return nil, &APIError{
				StatusCode: resp.StatusCode,
				ErrorClass: ErrorClassNetwork,
				Message:    "read response body",
				Err:        err,
			}
		}
		if err := c.cache.Set(ctx, cacheKey, entry); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to cache response")
		} else {
			c.logger.Debug().
				Str("endpoint", endpoint).
				Dur("ttl", entry.TTL(entry.StoredAt)).
				Msg("Cached response")
		}
	}

	return resp, nil
}

// attempt sends one request through the circuit breaker.
func (c *Client) attempt(req *http.Request, endpoint string) (*http.Response, ErrorClass, error) {
	if c.breaker == nil {
		return c.roundTrip(req, endpoint)
	}

	var class ErrorClass
	out, err := c.breaker.Execute(func() (interface{}, error) {
		resp, cl, err := c.roundTrip(req, endpoint)
		class = cl
		if err != nil {
			return nil, err
		}
		return resp, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		apiRequestsTotal.WithLabelValues(endpoint, "circuit_open").Inc()
		return nil, "", fmt.Errorf("%w: %v", ErrCircuitOpen, err)
	}
	if err != nil {
		return nil, class, err
	}
	return out.(*http.Response), "", nil
}

// roundTrip sends one request and classifies the outcome.
func (c *Client) roundTrip(req *http.Request, endpoint string) (*http.Response, ErrorClass, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, "", fmt.Errorf("%w: %w", ErrContextCancelled, ctxErr)
		}
		c.logger.Error().Err(err).Str("endpoint", endpoint).Msg("HTTP request failed")
		apiErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		apiRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		return nil, ErrorClassNetwork, &APIError{
			ErrorClass: ErrorClassNetwork,
			Message:    "request failed",
			Err:        err,
		}
	}

	if c.rateLimiter != nil {
		if err := c.rateLimiter.UpdateFromHeaders(req.Context(), resp.Header); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to update rate limit from headers")
		}
	}

	apiRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	class := classifyStatus(resp.StatusCode)
	if class == "" {
		return resp, "", nil
	}

	apiErrorsTotal.WithLabelValues(string(class)).Inc()
	c.logger.Warn().
		Str("endpoint", endpoint).
		Int("status", resp.StatusCode).
		Str("error_class", string(class)).
		Msg("Twitch request error")

	return nil, class, &APIError{
		StatusCode: resp.StatusCode,
		ErrorClass: class,
		Message:    errorMessage(resp),
	}
}

// errorMessage reads the Kraken error body and closes it.
func errorMessage(resp *http.Response) string {
	defer resp.Body.Close()

	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil || json.Unmarshal(data, &body) != nil {
		return resp.Status
	}
	switch {
	case body.Message != "":
		return body.Message
	case body.Error != "":
		return body.Error
	default:
		return resp.Status
	}
}

// endpoint strips the base path, leaving the route (e.g. "/games/top").
func (c *Client) endpoint(path string) string {
	if trimmed := strings.TrimPrefix(path, c.baseURL.Path); trimmed != "" {
		return trimmed
	}
	return path
}

// Get performs a GET request to a route below the base URL.
func (c *Client) Get(ctx context.Context, route string, query url.Values) (*http.Response, error) {
	u := *c.baseURL
	u.Path = c.baseURL.Path + route
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	return c.Do(req)
}

// getJSON performs a GET request and decodes the body into v.
func (c *Client) getJSON(ctx context.Context, route string, query url.Values, v any) error {
	resp, err := c.Get(ctx, route, query)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		apiErrorsTotal.WithLabelValues(string(ErrorClassDecoding)).Inc()
		return &APIError{
			StatusCode: resp.StatusCode,
			ErrorClass: ErrorClassDecoding,
			Message:    "decode " + route,
			Err:        err,
		}
	}
	return nil
}

// Ready checks the Redis connection when caching is enabled.
func (c *Client) Ready(ctx context.Context) error {
	if c.cache == nil {
		return nil
	}
	return c.cache.Ping(ctx)
}

// Invalidate drops every cached page of route, so the next load of the list
// goes to the API. It returns the number of dropped pages.
func (c *Client) Invalidate(ctx context.Context, route string) (int, error) {
	if c.cache == nil {
		return 0, nil
	}
	return c.cache.InvalidateRoute(ctx, route)
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
