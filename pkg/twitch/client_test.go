package twitch

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/Sternrassler/streamlist/internal/testutil"
	"github.com/Sternrassler/streamlist/pkg/ratelimit"
	"github.com/redis/go-redis/v9"
)

// setupTestRedis creates a test Redis client.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // Use a separate DB for tests
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}

	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return client
}

// newTestClient builds a client against the mock server with fast retries
// and no circuit breaker.
func newTestClient(t *testing.T, mock *testutil.MockTwitch, redisClient *redis.Client) *Client {
	t.Helper()

	cfg := DefaultConfig(redisClient, "test-client-id")
	cfg.BaseURL = mock.URL() + "/kraken"
	cfg.Retry = fastRetry
	cfg.Breaker = BreakerConfig{}

	c, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "valid", cfg: DefaultConfig(nil, "abc"), wantErr: false},
		{name: "missing client id", cfg: DefaultConfig(nil, ""), wantErr: true},
		{name: "relative base url", cfg: Config{ClientID: "abc", BaseURL: "api.twitch.tv"}, wantErr: true},
		{name: "unsupported scheme", cfg: Config{ClientID: "abc", BaseURL: "ftp://api.twitch.tv"}, wantErr: true},
		{name: "zero values default", cfg: Config{ClientID: "abc"}, wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && c.config.Retry == nil {
				t.Error("Retry policy should default")
			}
		})
	}
}

func TestNew_WithoutRedis(t *testing.T) {
	c, err := New(DefaultConfig(nil, "abc"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if c.cache != nil || c.rateLimiter != nil {
		t.Error("cache and rate limiter need Redis")
	}
	if c.breaker == nil {
		t.Error("default config enables the breaker")
	}
	if err := c.Ready(context.Background()); err != nil {
		t.Errorf("Ready() without Redis = %v, want nil", err)
	}
}

func TestDo_HeadersSet(t *testing.T) {
	mock := testutil.NewMockTwitch()
	defer mock.Close()
	mock.ServeTopGames([]string{"Dota 2"})

	c := newTestClient(t, mock, nil)
	c.config.UserAgent = "streamlist-test/1.0"

	if _, err := c.TopGames(context.Background(), 10, 0); err != nil {
		t.Fatalf("TopGames() error = %v", err)
	}

	h := mock.LastRequestHeader()
	if got := h.Get("Client-ID"); got != "test-client-id" {
		t.Errorf("Client-ID = %q", got)
	}
	if got := h.Get("Accept"); got != acceptV5 {
		t.Errorf("Accept = %q, want %q", got, acceptV5)
	}
	if got := h.Get("User-Agent"); got != "streamlist-test/1.0" {
		t.Errorf("User-Agent = %q", got)
	}
}

func TestTopGames(t *testing.T) {
	mock := testutil.NewMockTwitch()
	defer mock.Close()
	mock.ServeTopGames([]string{"Dota 2", "Hearthstone", "Overwatch"})

	c := newTestClient(t, mock, nil)
	resp, err := c.TopGames(context.Background(), 2, 1)
	if err != nil {
		t.Fatalf("TopGames() error = %v", err)
	}

	if resp.Total != 3 {
		t.Errorf("Total = %d, want 3", resp.Total)
	}
	if len(resp.Top) != 2 || resp.Top[0].Game.Name != "Hearthstone" || resp.Top[1].Game.Name != "Overwatch" {
		t.Errorf("Top = %+v", resp.Top)
	}
	if q := mock.LastQuery(); q["limit"] != "2" || q["offset"] != "1" {
		t.Errorf("query = %v", q)
	}
}

func TestStreams_GameFilter(t *testing.T) {
	mock := testutil.NewMockTwitch()
	defer mock.Close()
	mock.ServeStreams([]string{"dendi", "arteezy"})

	c := newTestClient(t, mock, nil)
	resp, err := c.Streams(context.Background(), "Dota 2", 25, 0)
	if err != nil {
		t.Fatalf("Streams() error = %v", err)
	}
	if len(resp.Streams) != 2 || resp.Streams[0].Game != "Dota 2" {
		t.Errorf("Streams = %+v", resp.Streams)
	}
	if q := mock.LastQuery(); q["game"] != "Dota 2" {
		t.Errorf("game query = %q", q["game"])
	}

	if _, err := c.Streams(context.Background(), "", 25, 0); err != nil {
		t.Fatalf("Streams() without game error = %v", err)
	}
	if _, ok := mock.LastQuery()["game"]; ok {
		t.Error("empty game should not be sent")
	}
}

func TestDo_ClientErrorNotRetried(t *testing.T) {
	mock := testutil.NewMockTwitch()
	defer mock.Close()
	mock.SetResponse("/kraken/games/top", testutil.NewBadRequestResponse())

	c := newTestClient(t, mock, nil)
	_, err := c.TopGames(context.Background(), 10, 0)

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected *APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest || apiErr.ErrorClass != ErrorClassClient {
		t.Errorf("APIError = %+v", apiErr)
	}
	if apiErr.Message != "No client id specified" {
		t.Errorf("Message = %q", apiErr.Message)
	}
	if mock.RequestCount() != 1 {
		t.Errorf("RequestCount = %d, want 1", mock.RequestCount())
	}
}

func TestDo_RetryOnServerError(t *testing.T) {
	mock := testutil.NewMockTwitch()
	defer mock.Close()
	mock.SetSequence("/kraken/games/top",
		testutil.NewServerErrorResponse(),
		testutil.NewServerErrorResponse(),
		testutil.NewOKResponse(`{"_total":1,"top":[{"game":{"name":"Dota 2"},"viewers":10}]}`),
	)

	c := newTestClient(t, mock, nil)
	resp, err := c.TopGames(context.Background(), 10, 0)
	if err != nil {
		t.Fatalf("TopGames() error = %v", err)
	}
	if len(resp.Top) != 1 {
		t.Errorf("Top = %+v", resp.Top)
	}
	if mock.RequestCount() != 3 {
		t.Errorf("RequestCount = %d, want 3", mock.RequestCount())
	}
}

func TestDo_RetryOnRateLimit(t *testing.T) {
	mock := testutil.NewMockTwitch()
	defer mock.Close()
	mock.SetSequence("/kraken/streams",
		testutil.NewRateLimitResponse(),
		testutil.NewOKResponse(`{"_total":0,"streams":[]}`),
	)

	c := newTestClient(t, mock, nil)
	if _, err := c.Streams(context.Background(), "", 10, 0); err != nil {
		t.Fatalf("Streams() error = %v", err)
	}
	if mock.RequestCount() != 2 {
		t.Errorf("RequestCount = %d, want 2", mock.RequestCount())
	}
}

func TestDo_RetryExhausted(t *testing.T) {
	mock := testutil.NewMockTwitch()
	defer mock.Close()
	mock.SetResponse("/kraken/games/top", testutil.NewServerErrorResponse())

	c := newTestClient(t, mock, nil)
	_, err := c.TopGames(context.Background(), 10, 0)

	if !errors.Is(err, ErrRetryExhausted) {
		t.Fatalf("Expected ErrRetryExhausted, got %v", err)
	}
	if ClassOf(err) != ErrorClassServer {
		t.Errorf("ClassOf = %q, want server", ClassOf(err))
	}
	if mock.RequestCount() != 3 {
		t.Errorf("RequestCount = %d, want 3", mock.RequestCount())
	}
}

func TestDo_DecodingError(t *testing.T) {
	mock := testutil.NewMockTwitch()
	defer mock.Close()
	mock.SetResponse("/kraken/games/top", testutil.NewOKResponse(`{"_total": "many"`))

	c := newTestClient(t, mock, nil)
	_, err := c.TopGames(context.Background(), 10, 0)

	if ClassOf(err) != ErrorClassDecoding {
		t.Fatalf("Expected decoding error, got %v", err)
	}
	if mock.RequestCount() != 1 {
		t.Errorf("decoding errors are not retried, RequestCount = %d", mock.RequestCount())
	}
}

func TestDo_ContextCancelled(t *testing.T) {
	mock := testutil.NewMockTwitch()
	defer mock.Close()
	mock.SetResponse("/kraken/games/top", testutil.MockResponse{StatusCode: 200, Body: `{}`, Delay: 200 * time.Millisecond})

	c := newTestClient(t, mock, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.TopGames(ctx, 10, 0)
	if !errors.Is(err, ErrContextCancelled) {
		t.Errorf("Expected ErrContextCancelled, got %v", err)
	}
}

func TestDo_CircuitBreakerOpens(t *testing.T) {
	mock := testutil.NewMockTwitch()
	defer mock.Close()
	mock.SetResponse("/kraken/games/top", testutil.NewServerErrorResponse())

	cfg := DefaultConfig(nil, "test-client-id")
	cfg.BaseURL = mock.URL() + "/kraken"
	cfg.Retry = func(ErrorClass) RetryConfig { return RetryConfig{MaxAttempts: 1} }
	cfg.Breaker = BreakerConfig{ConsecutiveFailures: 2, Timeout: time.Minute, MaxRequests: 1}
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := c.TopGames(ctx, 10, 0); !errors.Is(err, ErrRetryExhausted) {
			t.Fatalf("call %d: expected ErrRetryExhausted, got %v", i, err)
		}
	}

	_, err = c.TopGames(ctx, 10, 0)
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("Expected ErrCircuitOpen, got %v", err)
	}
	if mock.RequestCount() != 2 {
		t.Errorf("open breaker must not reach the server, RequestCount = %d", mock.RequestCount())
	}
}

func TestDo_ClientErrorsDoNotTripBreaker(t *testing.T) {
	mock := testutil.NewMockTwitch()
	defer mock.Close()
	mock.SetResponse("/kraken/games/top", testutil.NewBadRequestResponse())

	cfg := DefaultConfig(nil, "test-client-id")
	cfg.BaseURL = mock.URL() + "/kraken"
	cfg.Breaker = BreakerConfig{ConsecutiveFailures: 1, Timeout: time.Minute, MaxRequests: 1}
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := c.TopGames(context.Background(), 10, 0); ClassOf(err) != ErrorClassClient {
			t.Fatalf("call %d: expected client error, got %v", i, err)
		}
	}
}

func TestEndpoint(t *testing.T) {
	c, err := New(Config{ClientID: "abc", BaseURL: "https://api.twitch.tv/kraken/"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if got := c.endpoint("/kraken/games/top"); got != "/games/top" {
		t.Errorf("endpoint() = %q", got)
	}
	if got := c.endpoint("/kraken"); got != "/kraken" {
		t.Errorf("endpoint(base) = %q", got)
	}
}

func TestDo_CacheHit(t *testing.T) {
	redisClient := setupTestRedis(t)
	mock := testutil.NewMockTwitch()
	defer mock.Close()
	mock.ServeTopGames([]string{"Dota 2"})

	c := newTestClient(t, mock, redisClient)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		resp, err := c.TopGames(ctx, 10, 0)
		if err != nil {
			t.Fatalf("TopGames() #%d error = %v", i, err)
		}
		if len(resp.Top) != 1 {
			t.Fatalf("TopGames() #%d = %+v", i, resp)
		}
	}

	if mock.RequestCount() != 1 {
		t.Errorf("RequestCount = %d, want 1 (cached)", mock.RequestCount())
	}

	// A different page is a different key.
	if _, err := c.TopGames(ctx, 10, 10); err != nil {
		t.Fatal(err)
	}
	if mock.RequestCount() != 2 {
		t.Errorf("RequestCount = %d, want 2", mock.RequestCount())
	}
}

func TestInvalidate(t *testing.T) {
	redisClient := setupTestRedis(t)
	mock := testutil.NewMockTwitch()
	defer mock.Close()
	mock.ServeStreams([]string{"dendi"})
	mock.ServeTopGames([]string{"Dota 2"})

	c := newTestClient(t, mock, redisClient)
	ctx := context.Background()

	for _, offset := range []int{0, 25} {
		if _, err := c.Streams(ctx, "Dota 2", 25, offset); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := c.TopGames(ctx, 10, 0); err != nil {
		t.Fatal(err)
	}

	n, err := c.Invalidate(ctx, RouteStreams)
	if err != nil {
		t.Fatalf("Invalidate() error = %v", err)
	}
	if n != 2 {
		t.Errorf("Invalidate() = %d, want 2", n)
	}

	if _, err := c.Streams(ctx, "Dota 2", 25, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := c.TopGames(ctx, 10, 0); err != nil {
		t.Fatal(err)
	}
	if mock.RequestCount() != 4 {
		t.Errorf("RequestCount = %d, want 4 (streams refetched, games cached)", mock.RequestCount())
	}
}

func TestInvalidate_WithoutRedis(t *testing.T) {
	c, err := New(DefaultConfig(nil, "abc"))
	if err != nil {
		t.Fatal(err)
	}
	if n, err := c.Invalidate(context.Background(), RouteStreams); n != 0 || err != nil {
		t.Errorf("Invalidate() = %d, %v", n, err)
	}
}

func TestDo_Revalidate304(t *testing.T) {
	redisClient := setupTestRedis(t)
	mock := testutil.NewMockTwitch()
	defer mock.Close()

	body := `{"_total":1,"top":[{"game":{"name":"Dota 2"}}]}`
	mock.SetSequence("/kraken/games/top", testutil.NewOKResponse(body), testutil.NewNotModifiedResponse())

	c := newTestClient(t, mock, redisClient)
	c.config.Revalidate = true
	ctx := context.Background()

	if _, err := c.TopGames(ctx, 10, 0); err != nil {
		t.Fatal(err)
	}

	resp, err := c.Get(ctx, "/games/top", pageQuery(10, 0))
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	defer resp.Body.Close()

	if resp.Header.Get("X-Cache") != "HIT" {
		t.Error("304 should be answered from cache")
	}
	data, _ := io.ReadAll(resp.Body)
	var decoded TopGamesResponse
	if err := json.Unmarshal(data, &decoded); err != nil || decoded.Top[0].Game.Name != "Dota 2" {
		t.Errorf("cached body = %s (%v)", data, err)
	}
	if mock.ConditionalCount() != 1 {
		t.Errorf("ConditionalCount = %d, want 1", mock.ConditionalCount())
	}
}

func TestDo_RateLimitBlock(t *testing.T) {
	redisClient := setupTestRedis(t)
	mock := testutil.NewMockTwitch()
	defer mock.Close()
	mock.ServeTopGames([]string{"Dota 2"})

	ctx := context.Background()
	now := time.Now()
	redisClient.Set(ctx, ratelimit.RedisKeyPointsRemaining, 2, 0)
	redisClient.Set(ctx, ratelimit.RedisKeyResetTimestamp, strconv.FormatInt(now.Add(time.Minute).Unix(), 10), 0)

	c := newTestClient(t, mock, redisClient)
	_, err := c.TopGames(ctx, 10, 0)

	if !errors.Is(err, ErrRequestBlocked) {
		t.Errorf("Expected ErrRequestBlocked, got %v", err)
	}
	if mock.RequestCount() != 0 {
		t.Errorf("blocked request reached the server")
	}
}
