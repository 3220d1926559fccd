package paginator

import (
	"context"
)

// Page is one fetched batch of list items plus continuation info.
type Page[E any] struct {
	Items []E

	// HasMore is false on the last page.
	HasMore bool

	// NextCursor is passed back in the Request for the following page when
	// the remote API paginates by token instead of by index.
	NextCursor string
}

// Request identifies the page a fetch should return.
type Request struct {
	// Index is the zero-based page number.
	Index int

	// Cursor is the NextCursor of the previous page, empty for page 0.
	Cursor string

	// Generation tags the request; results of superseded generations are dropped.
	Generation uint64
}

// FetchFunc starts fetching the page described by req. It is invoked on the
// paginator's owning context and must not block; the result is reported by
// calling done exactly once, from any goroutine. FetchFunc must not retry on
// its own.
type FetchFunc[E any] func(ctx context.Context, req Request, done func(Page[E], error))

// Blocking adapts a synchronous fetch into a FetchFunc that runs fetch on its
// own goroutine.
func Blocking[E any](fetch func(ctx context.Context, req Request) (Page[E], error)) FetchFunc[E] {
	return func(ctx context.Context, req Request, done func(Page[E], error)) {
		go func() {
			page, err := fetch(ctx, req)
			done(page, err)
		}()
	}
}

// Transform maps a raw element to a list item. Returning false drops the element.
type Transform[E, T any] func(E) (T, bool)

// Identity keeps every element as is.
func Identity[E any]() Transform[E, E] {
	return func(e E) (E, bool) { return e, true }
}
