package viewmodel

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Sternrassler/streamlist/pkg/observable"
	"github.com/Sternrassler/streamlist/pkg/paginator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFetch struct {
	calls []func(paginator.Page[string], error)
}

func (s *stubFetch) fetch(_ context.Context, _ paginator.Request, done func(paginator.Page[string], error)) {
	s.calls = append(s.calls, done)
}

func nonEmpty(s string) (string, bool) { return s, s != "" }

func newTestList(t *testing.T, activity *ActivityIndicator) (*List[string, string], *stubFetch) {
	t.Helper()
	f := &stubFetch{}
	l, err := NewList(Config[string, string]{
		Paginator: paginator.Config[string, string]{
			Name:      "vm",
			Fetch:     f.fetch,
			Transform: nonEmpty,
		},
		Activity: activity,
	})
	require.NoError(t, err)
	t.Cleanup(l.Close)
	return l, f
}

func TestNewList_InvalidPaginator(t *testing.T) {
	_, err := NewList(Config[string, string]{})
	assert.ErrorContains(t, err, "create paginator")
}

func TestList_LoadMoreRowFollowsAllLoaded(t *testing.T) {
	l, f := newTestList(t, nil)
	ctx := context.Background()

	assert.True(t, l.LoadMoreVisible().Value())

	l.Retry(ctx)
	f.calls[0](paginator.Page[string]{Items: []string{"a", "", "b"}, HasMore: true}, nil)
	assert.Equal(t, []any{"a", "b", LoadMoreItem{}}, l.Rows())

	l.LoadMore(ctx)
	f.calls[1](paginator.Page[string]{Items: []string{"c"}, HasMore: false}, nil)
	assert.False(t, l.LoadMoreVisible().Value())
	assert.Equal(t, []any{"a", "b", "c"}, l.Rows())

	l.Reload(ctx)
	assert.True(t, l.LoadMoreVisible().Value(), "reload brings the load more row back")
}

func TestList_NetworkActive(t *testing.T) {
	l, f := newTestList(t, nil)
	ctx := context.Background()

	var seen []bool
	l.Bind(l.NetworkActive().Observe(func(v bool) { seen = append(seen, v) }))

	l.Reload(ctx)
	assert.True(t, l.NetworkActive().Value())

	f.calls[0](paginator.Page[string]{}, errors.New("offline"))
	assert.False(t, l.NetworkActive().Value())
	assert.Equal(t, []bool{true, false}, seen)
}

func TestList_WillDisplayAndScroll(t *testing.T) {
	l, f := newTestList(t, nil)
	ctx := context.Background()

	l.WillDisplay(ctx, "a")
	assert.Empty(t, f.calls)

	l.WillDisplay(ctx, LoadMoreItem{})
	require.Len(t, f.calls, 1)
	f.calls[0](paginator.Page[string]{Items: []string{"a"}, HasMore: true}, nil)

	l.Scrolled(ctx, ScrollPosition{ContentHeight: 5000, ViewportHeight: 1000, Offset: 0})
	assert.Len(t, f.calls, 1, "far from the bottom")

	for i := 0; i < 3; i++ {
		l.Scrolled(ctx, ScrollPosition{ContentHeight: 5000, ViewportHeight: 1000, Offset: 3500})
	}
	assert.Len(t, f.calls, 2, "scroll events while loading issue one request")
}

func TestList_WillDisplayFromItemsObserver(t *testing.T) {
	activity := NewActivityIndicator()
	l, f := newTestList(t, activity)
	ctx := context.Background()

	var lastState paginator.Status
	l.Bind(l.State().Observe(func(s paginator.LoadingState) { lastState = s.Status }))
	// A short page keeps the load more row on screen, so the view asks for more
	// right away.
	l.Bind(l.Items().Observe(func(items []string) {
		if len(items) < 4 {
			l.WillDisplay(ctx, LoadMoreItem{})
		}
	}))

	l.Retry(ctx)
	f.calls[0](paginator.Page[string]{Items: []string{"a", "b"}, HasMore: true}, nil)

	require.Len(t, f.calls, 2)
	assert.Equal(t, paginator.StatusLoading, l.State().Value().Status)
	assert.Equal(t, paginator.StatusLoading, lastState)
	assert.True(t, l.NetworkActive().Value())
	assert.True(t, activity.Visible().Value())

	f.calls[1](paginator.Page[string]{Items: []string{"c", "d"}, HasMore: false}, nil)
	assert.Equal(t, paginator.StatusLoaded, lastState)
	assert.False(t, l.NetworkActive().Value())
	assert.False(t, activity.Visible().Value())
}

func TestList_CloseReleasesSubscriptions(t *testing.T) {
	l, _ := newTestList(t, nil)

	calls := 0
	l.Bind(l.Items().Observe(func([]string) { calls++ }))
	l.Close()
	l.Close()

	assert.Equal(t, 0, l.Items().Len())
	assert.Equal(t, 0, l.State().Len())
	assert.Equal(t, 0, l.Paginator().AllLoaded().Len())

	// Bound after close: released immediately.
	l.Bind(l.Items().Observe(func([]string) { calls++ }))
	assert.Equal(t, 0, l.Items().Len())
}

func TestActivityIndicator_AggregatesLists(t *testing.T) {
	activity := NewActivityIndicator()
	games, gamesFetch := newTestList(t, activity)
	streams, streamsFetch := newTestList(t, activity)
	ctx := context.Background()

	games.Reload(ctx)
	streams.Reload(ctx)
	assert.True(t, activity.Visible().Value())

	gamesFetch.calls[0](paginator.Page[string]{Items: []string{"x"}}, nil)
	assert.True(t, activity.Visible().Value(), "streams still loading")

	streamsFetch.calls[0](paginator.Page[string]{Items: []string{"y"}}, nil)
	assert.False(t, activity.Visible().Value())
}

func TestActivityIndicator_CloseWhileLoading(t *testing.T) {
	activity := NewActivityIndicator()
	l, _ := newTestList(t, activity)

	l.Reload(context.Background())
	require.True(t, activity.Visible().Value())

	l.Close()
	assert.False(t, activity.Visible().Value())
}

func TestActivityIndicator_ConcurrentSources(t *testing.T) {
	activity := NewActivityIndicator()

	var mu sync.Mutex
	var last bool
	activity.Visible().Observe(func(v bool) {
		mu.Lock()
		last = v
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		source := observable.NewProperty(false)
		d := activity.Track(source)
		t.Cleanup(d.Dispose)

		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				source.Set(true)
				source.Set(false)
			}
		}()
	}
	wg.Wait()

	assert.False(t, activity.Visible().Value())
	mu.Lock()
	defer mu.Unlock()
	assert.False(t, last, "last notification matches the idle count")
}

func TestNearBottom(t *testing.T) {
	tests := []struct {
		name      string
		pos       ScrollPosition
		threshold float64
		want      bool
	}{
		{name: "top of long list", pos: ScrollPosition{ContentHeight: 5000, ViewportHeight: 800}, want: false},
		{name: "exactly at threshold", pos: ScrollPosition{ContentHeight: 2000, ViewportHeight: 800, Offset: 600}, want: true},
		{name: "content shorter than viewport", pos: ScrollPosition{ContentHeight: 300, ViewportHeight: 800}, want: true},
		{name: "custom threshold", pos: ScrollPosition{ContentHeight: 2000, ViewportHeight: 800, Offset: 600}, threshold: 100, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NearBottom(tt.pos, tt.threshold))
		})
	}
}
