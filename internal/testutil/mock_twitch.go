// Package testutil provides a mock Twitch API server for tests.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockTwitch is a configurable mock Twitch API server.
type MockTwitch struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc

	requestCount      int
	conditionalCount  int
	lastRequestHeader http.Header
	lastQuery         map[string]string
}

// NewMockTwitch starts a new mock server.
func NewMockTwitch() *MockTwitch {
	mock := &MockTwitch{
		handlers: make(map[string]http.HandlerFunc),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.requestCount++
		mock.lastRequestHeader = r.Header.Clone()
		mock.lastQuery = make(map[string]string)
		for k := range r.URL.Query() {
			mock.lastQuery[k] = r.URL.Query().Get(k)
		}
		if r.Header.Get("If-None-Match") != "" {
			mock.conditionalCount++
		}
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}

		writeRateLimitHeaders(w, 799)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"Not Found","status":404}`))
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockTwitch) URL() string {
	return m.server.URL
}

// BaseURL returns the API root to configure clients with.
func (m *MockTwitch) BaseURL() string {
	return m.server.URL + "/kraken"
}

// Close shuts down the mock server.
func (m *MockTwitch) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockTwitch) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount = 0
	m.conditionalCount = 0
	m.lastRequestHeader = nil
	m.lastQuery = nil
}

// SetHandler sets a custom handler for a path.
func (m *MockTwitch) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a fixed response for a path.
func (m *MockTwitch) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetSequence answers successive requests to path with the given responses.
// The last response repeats once the sequence is exhausted.
func (m *MockTwitch) SetSequence(path string, resps ...MockResponse) {
	var mu sync.Mutex
	i := 0
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		resp := resps[i]
		if i < len(resps)-1 {
			i++
		}
		mu.Unlock()

		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// RequestCount returns the number of requests made to the server.
func (m *MockTwitch) RequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requestCount
}

// ConditionalCount returns the number of requests carrying If-None-Match.
func (m *MockTwitch) ConditionalCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.conditionalCount
}

// LastRequestHeader returns the headers of the most recent request.
func (m *MockTwitch) LastRequestHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastRequestHeader
}

// LastQuery returns the first value of each query parameter of the most
// recent request.
func (m *MockTwitch) LastQuery() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastQuery
}

// ServeTopGames answers /kraken/games/top from the given game names, honouring the
// limit and offset query parameters.
func (m *MockTwitch) ServeTopGames(names []string) {
	m.SetHandler("/kraken/games/top", func(w http.ResponseWriter, r *http.Request) {
		offset, limit := window(r, len(names))
		top := make([]map[string]any, 0, limit)
		for i := offset; i < offset+limit; i++ {
			top = append(top, map[string]any{
				"game": map[string]any{
					"_id":  i + 1,
					"name": names[i],
					"box":  map[string]string{"large": "https://static-cdn.jtvnw.net/ttv-boxart/" + names[i] + "-272x380.jpg"},
				},
				"viewers":  1000 - i,
				"channels": 100 - i,
			})
		}
		writeJSON(w, map[string]any{"_total": len(names), "top": top})
	})
}

// ServeStreams answers /kraken/streams from the given channel names, for any game.
func (m *MockTwitch) ServeStreams(channels []string) {
	m.SetHandler("/kraken/streams", func(w http.ResponseWriter, r *http.Request) {
		offset, limit := window(r, len(channels))
		streams := make([]map[string]any, 0, limit)
		for i := offset; i < offset+limit; i++ {
			streams = append(streams, map[string]any{
				"_id":     i + 1,
				"game":    r.URL.Query().Get("game"),
				"viewers": 500 - i,
				"preview": map[string]string{"medium": "https://static-cdn.jtvnw.net/previews-ttv/live_user_" + channels[i] + "-320x180.jpg"},
				"channel": map[string]any{
					"name":         channels[i],
					"display_name": channels[i],
					"status":       "live",
				},
			})
		}
		writeJSON(w, map[string]any{"_total": len(channels), "streams": streams})
	})
}

// NewOKResponse creates a 200 response carrying body and a healthy rate limit.
func NewOKResponse(body string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       body,
		Headers: map[string]string{
			"Ratelimit-Limit":     "800",
			"Ratelimit-Remaining": "799",
			"Ratelimit-Reset":     resetIn(time.Minute),
			"ETag":                `"test-etag-123"`,
			"Cache-Control":       "public, max-age=60",
			"Content-Type":        "application/json",
		},
	}
}

// NewNotModifiedResponse creates a 304 Not Modified response.
func NewNotModifiedResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusNotModified,
		Headers: map[string]string{
			"Ratelimit-Remaining": "799",
			"Ratelimit-Reset":     resetIn(time.Minute),
			"Cache-Control":       "public, max-age=60",
		},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error":"Too Many Requests","status":429}`,
		Headers: map[string]string{
			"Ratelimit-Remaining": "0",
			"Ratelimit-Reset":     resetIn(time.Second),
			"Content-Type":        "application/json",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error":"Internal Server Error","status":500}`,
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}

// NewBadRequestResponse creates a 400 Bad Request response.
func NewBadRequestResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusBadRequest,
		Body:       `{"error":"Bad Request","status":400,"message":"No client id specified"}`,
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}

func window(r *http.Request, total int) (offset, limit int) {
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 25
	}
	if offset > total {
		offset = total
	}
	if offset+limit > total {
		limit = total - offset
	}
	return offset, limit
}

func writeJSON(w http.ResponseWriter, v any) {
	writeRateLimitHeaders(w, 799)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=60")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(v)
}

func writeRateLimitHeaders(w http.ResponseWriter, remaining int) {
	w.Header().Set("Ratelimit-Limit", "800")
	w.Header().Set("Ratelimit-Remaining", strconv.Itoa(remaining))
	w.Header().Set("Ratelimit-Reset", resetIn(time.Minute))
}

func resetIn(d time.Duration) string {
	return strconv.FormatInt(time.Now().Add(d).Unix(), 10)
}
