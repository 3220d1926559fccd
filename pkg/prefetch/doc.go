// Package prefetch warms the response cache for the leading pages of a list.
//
// Twitch paginates by offset and every page is a separate cacheable request.
// Fetching the first screens ahead of time lets a list's first LoadFirst and
// LoadNext calls be answered from Redis.
//
// Example usage:
//
//	warmer := prefetch.NewWarmer(prefetch.DefaultConfig())
//	res, err := warmer.WarmPages(ctx, "games_top", 5,
//		prefetch.FromFetchFunc(twitch.GamesFetcher(client, 25)))
//
// The warmer:
//   - Fetches page 0 to learn whether the list continues
//   - Spawns a worker pool (default 4 workers) for the remaining pages
//   - Stops a worker at its first failure and returns partial results
package prefetch
