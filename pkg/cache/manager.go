package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var (
	// ErrCacheMiss is returned when no fresh entry exists for a key.
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry is returned when a stored entry cannot be decoded.
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// scanBatch is the COUNT hint for route invalidation scans.
const scanBatch = 100

// Manager stores API responses in Redis, keyed by route and query.
type Manager struct {
	redis  *redis.Client
	logger zerolog.Logger
	now    func() time.Time
}

// NewManager creates a cache manager on redisClient.
func NewManager(redisClient *redis.Client, logger zerolog.Logger) (*Manager, error) {
	if redisClient == nil {
		return nil, errors.New("cache: redis client is required")
	}
	return &Manager{
		redis:  redisClient,
		logger: logger.With().Str("component", "cache").Logger(),
		now:    time.Now,
	}, nil
}

// Get returns the fresh entry for key, or ErrCacheMiss.
func (m *Manager) Get(ctx context.Context, key Key) (*Entry, error) {
	data, err := m.redis.Get(ctx, key.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		cacheLookups.WithLabelValues(key.Route, "miss").Inc()
		return nil, ErrCacheMiss
	}
	if err != nil {
		cacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		cacheErrors.WithLabelValues("decode").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	// Redis expiry has second granularity; Expires is authoritative.
	if !entry.Fresh(m.now()) {
		cacheLookups.WithLabelValues(key.Route, "stale").Inc()
		_ = m.Delete(ctx, key)
		return nil, ErrCacheMiss
	}

	cacheLookups.WithLabelValues(key.Route, "hit").Inc()
	return &entry, nil
}

// Set stores entry until it expires. Entries that are already stale are
// skipped.
func (m *Manager) Set(ctx context.Context, key Key, entry *Entry) error {
	if entry == nil {
		return errors.New("cache: nil entry")
	}
	ttl := entry.TTL(m.now())
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		cacheErrors.WithLabelValues("encode").Inc()
		return fmt.Errorf("encode cache entry: %w", err)
	}
	if err := m.redis.Set(ctx, key.String(), data, ttl).Err(); err != nil {
		cacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set %s: %w", key, err)
	}

	cacheBytesWritten.WithLabelValues(key.Route).Add(float64(len(data)))
	return nil
}

// Delete removes the entry for key.
func (m *Manager) Delete(ctx context.Context, key Key) error {
	if err := m.redis.Del(ctx, key.String()).Err(); err != nil {
		cacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

// Refresh moves the expiry of a cached entry, after the API confirmed it with
// 304 Not Modified.
func (m *Manager) Refresh(ctx context.Context, key Key, expires time.Time) error {
	entry, err := m.Get(ctx, key)
	if err != nil {
		return err
	}
	entry.Expires = expires
	return m.Set(ctx, key, entry)
}

// InvalidateRoute removes every cached page of route, whatever its query.
// It returns the number of removed entries.
func (m *Manager) InvalidateRoute(ctx context.Context, route string) (int, error) {
	keys := []string{routeKey(route)}
	iter := m.redis.Scan(ctx, 0, routeKey(route)+"?*", scanBatch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		cacheErrors.WithLabelValues("scan").Inc()
		return 0, fmt.Errorf("redis scan %s: %w", route, err)
	}

	n, err := m.redis.Del(ctx, keys...).Result()
	if err != nil {
		cacheErrors.WithLabelValues("delete").Inc()
		return 0, fmt.Errorf("redis del %s: %w", route, err)
	}

	cacheInvalidated.WithLabelValues(route).Add(float64(n))
	m.logger.Debug().Str("route", route).Int64("entries", n).Msg("Invalidated route")
	return int(n), nil
}

// Ping checks the Redis connection.
func (m *Manager) Ping(ctx context.Context) error {
	if err := m.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}
