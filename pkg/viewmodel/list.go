// Package viewmodel binds a paginator to the values a list screen renders:
// the items, whether the "load more" row is shown and whether network activity
// should be indicated.
package viewmodel

import (
	"context"
	"fmt"

	"github.com/Sternrassler/streamlist/pkg/observable"
	"github.com/Sternrassler/streamlist/pkg/paginator"
)

// LoadMoreItem is the placeholder row appended to a list that has more pages.
type LoadMoreItem struct{}

// Config holds list view model configuration.
type Config[E, T any] struct {
	Paginator paginator.Config[E, T]

	// Activity, if set, is told whenever this list starts or stops loading.
	Activity *ActivityIndicator
}

// List is the view model of one paginated list screen.
type List[E, T any] struct {
	paginator *paginator.Paginator[E, T]

	loadMoreVisible *observable.Property[bool]
	networkActive   *observable.Property[bool]

	disposable observable.CompositeDisposable
}

// NewList creates a list view model. It does not start loading.
func NewList[E, T any](cfg Config[E, T]) (*List[E, T], error) {
	p, err := paginator.New(cfg.Paginator)
	if err != nil {
		return nil, fmt.Errorf("create paginator: %w", err)
	}

	l := &List[E, T]{
		paginator:       p,
		loadMoreVisible: observable.NewProperty(true),
		networkActive:   observable.NewProperty(false),
	}

	l.disposable.Add(p.AllLoaded().Subscribe(func(allLoaded bool) {
		if l.loadMoreVisible.Value() != !allLoaded {
			l.loadMoreVisible.Set(!allLoaded)
		}
	}))
	l.disposable.Add(p.State().Subscribe(func(s paginator.LoadingState) {
		if active := s.IsLoading(); active != l.networkActive.Value() {
			l.networkActive.Set(active)
		}
	}))

	if cfg.Activity != nil {
		l.disposable.Add(cfg.Activity.Track(l.networkActive))
	}

	return l, nil
}

// Paginator returns the underlying paginator.
func (l *List[E, T]) Paginator() *paginator.Paginator[E, T] { return l.paginator }

// Items is the accumulated list.
func (l *List[E, T]) Items() *observable.Property[[]T] { return l.paginator.Items() }

// State is the loading state of the list.
func (l *List[E, T]) State() *observable.Property[paginator.LoadingState] {
	return l.paginator.State()
}

// LoadMoreVisible is true while more pages may exist.
func (l *List[E, T]) LoadMoreVisible() *observable.Property[bool] { return l.loadMoreVisible }

// NetworkActive is true while a fetch is in flight.
func (l *List[E, T]) NetworkActive() *observable.Property[bool] { return l.networkActive }

// Rows returns the items followed by a LoadMoreItem when more pages may exist.
func (l *List[E, T]) Rows() []any {
	items := l.Items().Value()
	rows := make([]any, 0, len(items)+1)
	for _, item := range items {
		rows = append(rows, item)
	}
	if l.loadMoreVisible.Value() {
		rows = append(rows, LoadMoreItem{})
	}
	return rows
}

// LoadMore requests the next page.
func (l *List[E, T]) LoadMore(ctx context.Context) { l.paginator.LoadNext(ctx) }

// Scrolled requests the next page once the viewport nears the end of the
// content. Repeated calls while a page is loading are harmless.
func (l *List[E, T]) Scrolled(ctx context.Context, pos ScrollPosition) {
	if NearBottom(pos, DefaultLoadMoreThreshold) {
		l.LoadMore(ctx)
	}
}

// WillDisplay requests the next page when the "load more" row becomes visible.
func (l *List[E, T]) WillDisplay(ctx context.Context, row any) {
	if _, ok := row.(LoadMoreItem); ok {
		l.LoadMore(ctx)
	}
}

// Reload refetches the list from the first page.
func (l *List[E, T]) Reload(ctx context.Context) { l.paginator.LoadCurrent(ctx) }

// Retry is bound to the retry affordance of the loading view.
func (l *List[E, T]) Retry(ctx context.Context) { l.paginator.LoadFirst(ctx) }

// Bind ties d to the lifetime of the list; it is disposed by Close.
func (l *List[E, T]) Bind(d observable.Disposable) { l.disposable.Add(d) }

// Close releases every subscription made by or bound to the list.
func (l *List[E, T]) Close() {
	l.disposable.Dispose()
}
