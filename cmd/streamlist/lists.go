package main

import (
	"context"
	"fmt"

	"github.com/Sternrassler/streamlist/pkg/executor"
	"github.com/Sternrassler/streamlist/pkg/listview"
	"github.com/Sternrassler/streamlist/pkg/paginator"
	"github.com/Sternrassler/streamlist/pkg/twitch"
	"github.com/Sternrassler/streamlist/pkg/viewmodel"
)

var (
	gamesTexts   = listview.Texts{Empty: "No games are live right now"}
	streamsTexts = listview.Texts{Empty: "No one is streaming this game"}
)

func gamesList(client *twitch.Client, pageSize int) viewmodel.Config[twitch.TopGame, twitch.GameItem] {
	return viewmodel.Config[twitch.TopGame, twitch.GameItem]{
		Paginator: paginator.Config[twitch.TopGame, twitch.GameItem]{
			Name:      "games_top",
			Fetch:     twitch.GamesFetcher(client, pageSize),
			Transform: twitch.GameToItem,
		},
	}
}

func streamsList(client *twitch.Client, game string, pageSize int) viewmodel.Config[twitch.Stream, twitch.StreamItem] {
	return viewmodel.Config[twitch.Stream, twitch.StreamItem]{
		Paginator: paginator.Config[twitch.Stream, twitch.StreamItem]{
			Name:      "streams",
			Fetch:     twitch.StreamsFetcher(client, game, pageSize),
			Transform: twitch.StreamToItem,
		},
	}
}

// loadPages drives a list view model on loop: it loads the first page, then
// keeps loading more until pages pages are loaded, the list ends or a load
// fails. render, if set, sees every presentation change.
func loadPages[E, T any](
	ctx context.Context,
	loop *executor.Serial,
	cfg viewmodel.Config[E, T],
	pages int,
	texts listview.Texts,
	render func(listview.Presentation),
) (paginator.Snapshot[T], error) {
	cfg.Paginator.Executor = loop
	settled := make(chan paginator.LoadingState, 1)

	var (
		list    *viewmodel.List[E, T]
		snap    paginator.Snapshot[T]
		initErr error
	)

	err := loop.Sync(ctx, func() {
		list, initErr = viewmodel.NewList(cfg)
		if initErr != nil {
			return
		}
		list.Bind(list.State().Observe(func(s paginator.LoadingState) {
			if s.IsLoading() {
				return
			}
			select {
			case settled <- s:
			default:
			}
		}))
		if render != nil {
			list.Bind(listview.Bind(list.State(), list.Items(), texts, render))
		}
		list.Retry(ctx)
	})
	if err != nil {
		return snap, err
	}
	if initErr != nil {
		return snap, initErr
	}
	defer loop.Sync(context.Background(), list.Close)

	for loaded := 1; ; loaded++ {
		var state paginator.LoadingState
		select {
		case state = <-settled:
		case <-ctx.Done():
			return snap, ctx.Err()
		}
		if state.IsFailed() || loaded >= pages {
			break
		}

		more := false
		if err := loop.Sync(ctx, func() {
			if more = list.LoadMoreVisible().Value(); more {
				list.LoadMore(ctx)
			}
		}); err != nil {
			return snap, err
		}
		if !more {
			break
		}
	}

	if err := loop.Sync(ctx, func() { snap = list.Paginator().Snapshot() }); err != nil {
		return snap, err
	}
	return snap, nil
}

func formatGame(g twitch.GameItem) string {
	return fmt.Sprintf("%s (%d viewers, %d channels)", g.Name, g.Viewers, g.Channels)
}

func formatStream(s twitch.StreamItem) string {
	return fmt.Sprintf("%s: %s [%s, %d viewers]", s.Channel, s.Title, s.Game, s.Viewers)
}
