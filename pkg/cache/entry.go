package cache

import (
	"net/http"
	"time"
)

// Entry is one cached API response.
type Entry struct {
	Body       []byte      `json:"body"`
	StatusCode int         `json:"status_code"`
	Header     http.Header `json:"header"`

	// ETag and LastModified revalidate the entry with a conditional request.
	ETag         string    `json:"etag"`
	LastModified time.Time `json:"last_modified"`

	StoredAt time.Time `json:"stored_at"`
	Expires  time.Time `json:"expires"`
}

// Fresh reports whether the entry may be served without asking the API.
func (e *Entry) Fresh(now time.Time) bool {
	return now.Before(e.Expires)
}

// TTL returns the time left until Expires, or 0.
func (e *Entry) TTL(now time.Time) time.Duration {
	return max(e.Expires.Sub(now), 0)
}
