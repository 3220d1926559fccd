package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/Sternrassler/streamlist/pkg/executor"
	"github.com/Sternrassler/streamlist/pkg/listview"
	"github.com/Sternrassler/streamlist/pkg/metrics"
	"github.com/Sternrassler/streamlist/pkg/paginator"
	"github.com/Sternrassler/streamlist/pkg/twitch"
	"github.com/Sternrassler/streamlist/pkg/viewmodel"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// maxRequestPages caps the pages query parameter.
const maxRequestPages = 10

func newServeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Args:  cobra.NoArgs,
		Short: "Serve paginated lists over HTTP",
		Long: `Start an HTTP server exposing the top games and live streams lists as JSON,
plus /health, /ready and /metrics.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, cleanup, err := a.newClient()
			if err != nil {
				return err
			}
			defer cleanup()

			s := newServer(client, a.cfg.List.PageSize)
			defer s.Close()

			srv := &http.Server{
				Addr:              a.cfg.Server.Addr,
				Handler:           s.Router(a.cfg.Server.AllowedOrigins),
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				log.Info().Str("addr", srv.Addr).Msg("Starting streamlist server")
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}

			log.Info().Msg("Shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}

// server serves list snapshots. All lists share one run loop and one
// activity indicator, like the screens of a single app.
type server struct {
	client   *twitch.Client
	pageSize int
	loop     *executor.Serial
	activity *viewmodel.ActivityIndicator
	logger   zerolog.Logger
}

func newServer(client *twitch.Client, pageSize int) *server {
	s := &server{
		client:   client,
		pageSize: pageSize,
		loop:     executor.NewSerial(),
		activity: viewmodel.NewActivityIndicator(),
		logger:   log.With().Str("component", "server").Logger(),
	}
	s.loop.Do(func() {
		s.activity.Visible().Observe(func(active bool) {
			s.logger.Debug().Bool("active", active).Msg("Network activity changed")
		})
	})
	return s
}

// Close stops the run loop.
func (s *server) Close() {
	s.loop.Close()
}

// Router returns the HTTP handler with CORS applied.
func (s *server) Router(allowedOrigins []string) http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/health", healthHandler).Methods(http.MethodGet)
	r.HandleFunc("/ready", s.readyHandler).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/games", s.gamesHandler).Methods(http.MethodGet)
	api.HandleFunc("/streams", s.streamsHandler).Methods(http.MethodGet)
	api.HandleFunc("/streams/{game}", s.streamsHandler).Methods(http.MethodGet)

	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	})
	return c.Handler(r)
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *server) readyHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.client.Ready(r.Context()); err != nil {
		s.logger.Warn().Err(err).Msg("Not ready")
		http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("READY"))
}

func (s *server) gamesHandler(w http.ResponseWriter, r *http.Request) {
	pages, ok := parsePages(w, r)
	if !ok || !s.refresh(w, r, twitch.RouteTopGames) {
		return
	}
	cfg := gamesList(s.client, s.pageSize)
	cfg.Activity = s.activity
	snap, err := loadPages(r.Context(), s.loop, cfg, pages, gamesTexts, nil)
	writeSnapshot(w, s.logger, snap, err)
}

func (s *server) streamsHandler(w http.ResponseWriter, r *http.Request) {
	pages, ok := parsePages(w, r)
	if !ok || !s.refresh(w, r, twitch.RouteStreams) {
		return
	}
	cfg := streamsList(s.client, mux.Vars(r)["game"], s.pageSize)
	cfg.Activity = s.activity
	snap, err := loadPages(r.Context(), s.loop, cfg, pages, streamsTexts, nil)
	writeSnapshot(w, s.logger, snap, err)
}

// refresh drops the cached pages of route when the request asks for
// ?refresh=true, the server side of pull to refresh.
func (s *server) refresh(w http.ResponseWriter, r *http.Request, route string) bool {
	if r.URL.Query().Get("refresh") != "true" {
		return true
	}
	if _, err := s.client.Invalidate(r.Context(), route); err != nil {
		s.logger.Error().Err(err).Str("route", route).Msg("Invalidate failed")
		http.Error(w, "cache unavailable", http.StatusServiceUnavailable)
		return false
	}
	return true
}

func parsePages(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("pages")
	if raw == "" {
		return 1, true
	}
	pages, err := strconv.Atoi(raw)
	if err != nil || pages < 1 || pages > maxRequestPages {
		http.Error(w, "pages must be between 1 and 10", http.StatusBadRequest)
		return 0, false
	}
	return pages, true
}

// listResponse is the JSON form of a list snapshot.
type listResponse[T any] struct {
	Items     []T    `json:"items"`
	Pages     int    `json:"pages"`
	AllLoaded bool   `json:"all_loaded"`
	State     string `json:"state"`
	Error     string `json:"error,omitempty"`
}

func newListResponse[T any](snap paginator.Snapshot[T]) listResponse[T] {
	resp := listResponse[T]{
		Items:     snap.Items,
		Pages:     snap.Pages,
		AllLoaded: snap.AllLoaded,
		State:     snap.State.Status.String(),
	}
	if resp.Items == nil {
		resp.Items = []T{}
	}
	if snap.State.Err != nil {
		resp.Error = snap.State.Err.Error()
	}
	return resp
}

func writeSnapshot[T any](w http.ResponseWriter, logger zerolog.Logger, snap paginator.Snapshot[T], err error) {
	if err != nil {
		logger.Error().Err(err).Msg("Load list failed")
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(snapshotStatus(snap))
	if err := json.NewEncoder(w).Encode(newListResponse(snap)); err != nil {
		logger.Error().Err(err).Msg("Encode response failed")
	}
}

// snapshotStatus is 502 when the first page failed and 200 otherwise; a
// failed further page still returns the content loaded so far.
func snapshotStatus[T any](snap paginator.Snapshot[T]) int {
	if listview.Resolve(snap.State, len(snap.Items) == 0, listview.Texts{}).Error {
		return http.StatusBadGateway
	}
	return http.StatusOK
}
