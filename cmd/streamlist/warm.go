package main

import (
	"errors"

	"github.com/Sternrassler/streamlist/pkg/prefetch"
	"github.com/Sternrassler/streamlist/pkg/twitch"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var errWarmWithoutRedis = errors.New("warm needs redis: set redis.addr")

func newWarmCommand(a *app) *cobra.Command {
	var (
		pages   int
		refresh bool
	)

	cmd := &cobra.Command{
		Use:   "warm",
		Args:  cobra.NoArgs,
		Short: "Prefetch list pages into the Redis cache",
		Long: `Fetch the first pages of a list concurrently so that clients sharing
the Redis cache get them without a round trip to Twitch.`,
	}
	cmd.PersistentFlags().IntVar(&pages, "pages", 0, "pages to warm (default prefetch.pages)")
	cmd.PersistentFlags().BoolVar(&refresh, "refresh", false, "drop cached pages of the list first")

	run := func(cmd *cobra.Command, client *twitch.Client, route, name string, fetch prefetch.PageFunc) error {
		if refresh {
			n, err := client.Invalidate(cmd.Context(), route)
			if err != nil {
				return err
			}
			log.Info().Str("route", route).Int("entries", n).Msg("Dropped cached pages")
		}

		n := pages
		if n <= 0 {
			n = a.cfg.Prefetch.Pages
		}

		w := prefetch.NewWarmer(prefetch.Config{
			MaxConcurrency: a.cfg.Prefetch.Concurrency,
			Timeout:        prefetch.DefaultConfig().Timeout,
		})
		res, err := w.WarmPages(cmd.Context(), name, n, fetch)
		log.Info().
			Str("list", name).
			Int("warmed", res.Warmed).
			Int("failed", res.Failed).
			Dur("duration", res.Duration).
			Msg("Warm finished")
		return err
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "games",
			Args:  cobra.NoArgs,
			Short: "Warm the top games pages",
			RunE: func(cmd *cobra.Command, _ []string) error {
				client, cleanup, err := a.warmClient()
				if err != nil {
					return err
				}
				defer cleanup()
				fetch := prefetch.FromFetchFunc(twitch.GamesFetcher(client, a.cfg.List.PageSize))
				return run(cmd, client, twitch.RouteTopGames, "games_top", fetch)
			},
		},
		&cobra.Command{
			Use:   "streams [game]",
			Args:  cobra.MaximumNArgs(1),
			Short: "Warm the live streams pages",
			RunE: func(cmd *cobra.Command, args []string) error {
				game := ""
				if len(args) == 1 {
					game = args[0]
				}
				client, cleanup, err := a.warmClient()
				if err != nil {
					return err
				}
				defer cleanup()
				fetch := prefetch.FromFetchFunc(twitch.StreamsFetcher(client, game, a.cfg.List.PageSize))
				return run(cmd, client, twitch.RouteStreams, "streams", fetch)
			},
		},
	)
	return cmd
}

func (a *app) warmClient() (*twitch.Client, func(), error) {
	if !a.cfg.Redis.Enabled() {
		return nil, nil, errWarmWithoutRedis
	}
	return a.newClient()
}
