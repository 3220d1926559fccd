package cache

import (
	"net/url"
	"strings"
)

// KeyPrefix is prepended to every cache key.
const KeyPrefix = "twitch"

// Key identifies one cached page: the API route plus its query.
type Key struct {
	// Route is the API path below the base URL, e.g. "/games/top".
	Route string

	// Query holds paging and filter parameters (limit, offset, game).
	Query url.Values
}

// String renders the Redis key. Query parameters are sorted and escaped, so
// the key is deterministic and free of glob characters:
//
//	twitch:streams?game=Dota+2&limit=20&offset=0
func (k Key) String() string {
	s := routeKey(k.Route)
	if q := k.Query.Encode(); q != "" {
		s += "?" + q
	}
	return s
}

func routeKey(route string) string {
	return KeyPrefix + ":" + strings.Trim(route, "/")
}
