package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/Sternrassler/streamlist/pkg/executor"
	"github.com/Sternrassler/streamlist/pkg/listview"
	"github.com/Sternrassler/streamlist/pkg/paginator"
	"github.com/spf13/cobra"
)

type browseOptions struct {
	pages  int
	asJSON bool
}

func newBrowseCommand(a *app) *cobra.Command {
	opts := &browseOptions{}

	cmd := &cobra.Command{
		Use:   "browse",
		Args:  cobra.NoArgs,
		Short: "Print top games or live streams",
		Long: `Load one or more pages of a list the way the client app does:
first page on start, further pages on demand, stopping at the first failure.`,
	}
	cmd.PersistentFlags().IntVar(&opts.pages, "pages", 1, "number of pages to load")
	cmd.PersistentFlags().BoolVar(&opts.asJSON, "json", false, "print items as JSON")

	cmd.AddCommand(newBrowseGamesCommand(a, opts), newBrowseStreamsCommand(a, opts))
	return cmd
}

func newBrowseGamesCommand(a *app, opts *browseOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "games",
		Args:  cobra.NoArgs,
		Short: "Print the games with the most viewers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, cleanup, err := a.newClient()
			if err != nil {
				return err
			}
			defer cleanup()

			loop := executor.NewSerial()
			defer loop.Close()

			snap, err := loadPages(cmd.Context(), loop, gamesList(client, a.cfg.List.PageSize),
				opts.pages, gamesTexts, progress(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			return printSnapshot(cmd.OutOrStdout(), snap, gamesTexts, opts.asJSON, formatGame)
		},
	}
}

func newBrowseStreamsCommand(a *app, opts *browseOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "streams [game]",
		Args:  cobra.MaximumNArgs(1),
		Short: "Print live streams, optionally of one game",
		RunE: func(cmd *cobra.Command, args []string) error {
			game := ""
			if len(args) == 1 {
				game = args[0]
			}

			client, cleanup, err := a.newClient()
			if err != nil {
				return err
			}
			defer cleanup()

			loop := executor.NewSerial()
			defer loop.Close()

			snap, err := loadPages(cmd.Context(), loop, streamsList(client, game, a.cfg.List.PageSize),
				opts.pages, streamsTexts, progress(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			return printSnapshot(cmd.OutOrStdout(), snap, streamsTexts, opts.asJSON, formatStream)
		},
	}
}

// progress reports overlays that are transient while loading.
func progress(w io.Writer) func(listview.Presentation) {
	return func(p listview.Presentation) {
		switch {
		case p.Loading:
			fmt.Fprintln(w, "Loading...")
		case p.LoadMoreFailed:
			fmt.Fprintf(w, "Could not load more: %s\n", p.Message)
		}
	}
}

func printSnapshot[T any](w io.Writer, snap paginator.Snapshot[T], texts listview.Texts, asJSON bool, format func(T) string) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(newListResponse(snap))
	}

	p := listview.Resolve(snap.State, len(snap.Items) == 0, texts)
	switch {
	case p.Error:
		return fmt.Errorf("load list: %s", p.Message)
	case p.Empty:
		fmt.Fprintln(w, p.Message)
		return nil
	}

	for i, item := range snap.Items {
		fmt.Fprintf(w, "%3d. %s\n", i+1, format(item))
	}
	if !snap.AllLoaded && !p.LoadMoreFailed {
		fmt.Fprintf(w, "... more available (loaded %d pages, use --pages)\n", snap.Pages)
	}
	return nil
}
