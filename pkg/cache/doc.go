// Package cache stores Twitch API responses in Redis, one entry per page.
//
// An entry lives for as long as the response allows (Cache-Control max-age,
// then Expires, then DefaultTTL, capped at MaxTTL) and keeps the ETag and
// Last-Modified values needed to revalidate it.
//
//	m, err := cache.NewManager(rdb, logger)
//	key := cache.Key{Route: "/games/top", Query: url.Values{"limit": {"20"}, "offset": {"0"}}}
//
//	e, err := m.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// fetch, then
//		e, _ = cache.NewEntry(resp, time.Now())
//		_ = m.Set(ctx, key, e)
//	}
//
// Pull to refresh drops every cached page of a list at once:
//
//	_, err = m.InvalidateRoute(ctx, "/streams")
package cache
