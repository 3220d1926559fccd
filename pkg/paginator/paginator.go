package paginator

import (
	"context"
	"fmt"
	"sync"

	"github.com/Sternrassler/streamlist/pkg/executor"
	"github.com/Sternrassler/streamlist/pkg/observable"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// Config holds paginator configuration.
type Config[E, T any] struct {
	// Name labels the list in logs and metrics (e.g. "games_top").
	Name string

	// Fetch retrieves one page. Required.
	Fetch FetchFunc[E]

	// Transform maps raw elements to list items. Required.
	Transform Transform[E, T]

	// Executor is the owning execution context that fetch results are
	// delivered on. Defaults to executor.Inline.
	Executor executor.Executor
}

// Snapshot is a consistent copy of the published state.
type Snapshot[T any] struct {
	State     LoadingState
	Items     []T
	AllLoaded bool
	Pages     int
}

// Paginator loads a list page by page and publishes its state.
//
// All methods must be called on the owning execution context; fetch results
// are handed back through Config.Executor before they touch any state.
type Paginator[E, T any] struct {
	name      string
	fetch     FetchFunc[E]
	transform Transform[E, T]
	exec      executor.Executor
	logger    zerolog.Logger

	pages      []Page[E]
	generation uint64

	// notify orders deliveries when a subscriber calls back into the
	// paginator from inside a notification.
	notify observable.Queue

	state     *observable.Property[LoadingState]
	items     *observable.Property[[]T]
	allLoaded *observable.Property[bool]
}

// New creates a paginator in the Default state. Nothing is fetched until one
// of the load commands is called.
func New[E, T any](cfg Config[E, T]) (*Paginator[E, T], error) {
	if cfg.Fetch == nil {
		return nil, fmt.Errorf("fetch function is required")
	}
	if cfg.Transform == nil {
		return nil, fmt.Errorf("transform function is required")
	}
	if cfg.Name == "" {
		cfg.Name = "list"
	}
	if cfg.Executor == nil {
		cfg.Executor = executor.Inline{}
	}

	return &Paginator[E, T]{
		name:      cfg.Name,
		fetch:     cfg.Fetch,
		transform: cfg.Transform,
		exec:      cfg.Executor,
		logger:    log.With().Str("component", "paginator").Str("list", cfg.Name).Logger(),
		state:     observable.NewProperty(Default()),
		items:     observable.NewProperty[[]T](nil),
		allLoaded: observable.NewProperty(false),
	}, nil
}

// State is the loading state of the most recent fetch.
func (p *Paginator[E, T]) State() *observable.Property[LoadingState] { return p.state }

// Items is the accumulated, transformed list. Published slices must be
// treated as read-only.
func (p *Paginator[E, T]) Items() *observable.Property[[]T] { return p.items }

// AllLoaded is true once the last page has been applied.
func (p *Paginator[E, T]) AllLoaded() *observable.Property[bool] { return p.allLoaded }

// Generation returns the tag of the latest issued request.
func (p *Paginator[E, T]) Generation() uint64 { return p.generation }

// Snapshot returns the current published state.
func (p *Paginator[E, T]) Snapshot() Snapshot[T] {
	return Snapshot[T]{
		State:     p.state.Value(),
		Items:     p.items.Value(),
		AllLoaded: p.allLoaded.Value(),
		Pages:     len(p.pages),
	}
}

// LoadFirst discards every loaded page and fetches page 0. Any request in
// flight is superseded.
func (p *Paginator[E, T]) LoadFirst(ctx context.Context) {
	p.generation++
	p.pages = nil

	var publish []func()
	if len(p.items.Value()) > 0 {
		publish = append(publish, p.items.Store(nil))
	}
	if p.allLoaded.Value() {
		publish = append(publish, p.allLoaded.Store(false))
	}
	publish = append(publish, p.state.Store(Loading()))
	p.notify.Publish(publish...)

	p.issue(ctx, Request{Generation: p.generation}, true)
}

// LoadCurrent is LoadFirst.
func (p *Paginator[E, T]) LoadCurrent(ctx context.Context) { p.LoadFirst(ctx) }

// Reload is LoadFirst.
func (p *Paginator[E, T]) Reload(ctx context.Context) { p.LoadFirst(ctx) }

// LoadNext fetches the page after the last loaded one. It does nothing while
// a fetch is in flight or after the last page was loaded.
func (p *Paginator[E, T]) LoadNext(ctx context.Context) {
	if p.state.Value().IsLoading() || p.allLoaded.Value() {
		return
	}

	p.generation++
	req := Request{Index: len(p.pages), Generation: p.generation}
	if n := len(p.pages); n > 0 {
		req.Cursor = p.pages[n-1].NextCursor
	}

	p.notify.Publish(p.state.Store(Loading()))
	p.issue(ctx, req, false)
}

func (p *Paginator[E, T]) issue(ctx context.Context, req Request, reset bool) {
	kind := "next"
	if reset {
		kind = "first"
	}
	fetchesTotal.WithLabelValues(p.name, kind).Inc()

	p.logger.Debug().
		Str("kind", kind).
		Int("page", req.Index).
		Uint64("generation", req.Generation).
		Msg("Fetching page")

	var once sync.Once
	p.fetch(ctx, req, func(page Page[E], err error) {
		once.Do(func() {
			p.exec.Do(func() { p.complete(req, reset, page, err) })
		})
	})
}

func (p *Paginator[E, T]) complete(req Request, reset bool, page Page[E], err error) {
	if req.Generation != p.generation {
		resultsTotal.WithLabelValues(p.name, "stale").Inc()
		p.logger.Debug().
			Uint64("generation", req.Generation).
			Uint64("current", p.generation).
			Msg("Dropping stale page")
		return
	}

	if err != nil {
		resultsTotal.WithLabelValues(p.name, "failed").Inc()
		p.logger.Warn().
			Err(err).
			Int("page", req.Index).
			Int("pages_kept", len(p.pages)).
			Msg("Page fetch failed")
		p.notify.Publish(p.state.Store(Failed(err)))
		return
	}

	mapped := lo.FilterMap(page.Items, func(e E, _ int) (T, bool) {
		return p.transform(e)
	})

	var items []T
	if reset {
		p.pages = []Page[E]{page}
		items = mapped
	} else {
		p.pages = append(p.pages, page)
		// Appending never rewrites elements an observer already holds.
		items = append(p.items.Value(), mapped...)
	}

	resultsTotal.WithLabelValues(p.name, "applied").Inc()
	p.logger.Debug().
		Int("page", req.Index).
		Int("received", len(page.Items)).
		Int("total_items", len(items)).
		Bool("has_more", page.HasMore).
		Msg("Page applied")

	publish := []func(){p.items.Store(items)}
	if allLoaded := !page.HasMore; allLoaded != p.allLoaded.Value() {
		publish = append(publish, p.allLoaded.Store(allLoaded))
	}
	publish = append(publish, p.state.Store(Loaded()))
	p.notify.Publish(publish...)
}
