package twitch

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/Sternrassler/streamlist/pkg/paginator"
)

// MaxPageSize is the largest limit Kraken accepts.
const MaxPageSize = 100

// Routes of the paginated lists, relative to the base URL.
const (
	RouteTopGames = "/games/top"
	RouteStreams  = "/streams"
)

// TopGames returns the games with the most viewers.
func (c *Client) TopGames(ctx context.Context, limit, offset int) (*TopGamesResponse, error) {
	var out TopGamesResponse
	if err := c.getJSON(ctx, RouteTopGames, pageQuery(limit, offset), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Streams returns live streams, filtered by game when game is not empty.
func (c *Client) Streams(ctx context.Context, game string, limit, offset int) (*StreamsResponse, error) {
	query := pageQuery(limit, offset)
	if game != "" {
		query.Set("game", game)
	}

	var out StreamsResponse
	if err := c.getJSON(ctx, RouteStreams, query, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func pageQuery(limit, offset int) url.Values {
	return url.Values{
		"limit":  []string{strconv.Itoa(limit)},
		"offset": []string{strconv.Itoa(offset)},
	}
}

// GamesFetcher pages through /games/top, pageSize games at a time.
func GamesFetcher(c *Client, pageSize int) paginator.FetchFunc[TopGame] {
	pageSize = clampPageSize(pageSize)
	return paginator.Blocking(func(ctx context.Context, req paginator.Request) (paginator.Page[TopGame], error) {
		offset := req.Index * pageSize
		resp, err := c.TopGames(ctx, pageSize, offset)
		if err != nil {
			return paginator.Page[TopGame]{}, fmt.Errorf("top games page %d: %w", req.Index, err)
		}
		return paginator.Page[TopGame]{
			Items:   resp.Top,
			HasMore: hasMore(offset, len(resp.Top), resp.Total),
		}, nil
	})
}

// StreamsFetcher pages through the live streams of a game.
func StreamsFetcher(c *Client, game string, pageSize int) paginator.FetchFunc[Stream] {
	pageSize = clampPageSize(pageSize)
	return paginator.Blocking(func(ctx context.Context, req paginator.Request) (paginator.Page[Stream], error) {
		offset := req.Index * pageSize
		resp, err := c.Streams(ctx, game, pageSize, offset)
		if err != nil {
			return paginator.Page[Stream]{}, fmt.Errorf("streams page %d: %w", req.Index, err)
		}
		return paginator.Page[Stream]{
			Items:   resp.Streams,
			HasMore: hasMore(offset, len(resp.Streams), resp.Total),
		}, nil
	})
}

// hasMore reports whether items remain after a page. An empty page ends the
// list even if the total says otherwise.
func hasMore(offset, count, total int) bool {
	return count > 0 && offset+count < total
}

func clampPageSize(n int) int {
	switch {
	case n <= 0:
		return 25
	case n > MaxPageSize:
		return MaxPageSize
	default:
		return n
	}
}
