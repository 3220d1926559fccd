package cache

import (
	"testing"
	"time"
)

func TestEntry_FreshAndTTL(t *testing.T) {
	now := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		expires time.Time
		fresh   bool
		ttl     time.Duration
	}{
		{name: "an hour left", expires: now.Add(time.Hour), fresh: true, ttl: time.Hour},
		{name: "expires now", expires: now, fresh: false, ttl: 0},
		{name: "expired", expires: now.Add(-time.Second), fresh: false, ttl: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &Entry{Expires: tt.expires}
			if got := e.Fresh(now); got != tt.fresh {
				t.Errorf("Fresh() = %v, want %v", got, tt.fresh)
			}
			if got := e.TTL(now); got != tt.ttl {
				t.Errorf("TTL() = %v, want %v", got, tt.ttl)
			}
		})
	}
}
