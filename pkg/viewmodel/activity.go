package viewmodel

import (
	"sync"

	"github.com/Sternrassler/streamlist/pkg/observable"
)

// ActivityIndicator aggregates the network activity of several lists into a
// single flag, like a status bar spinner.
type ActivityIndicator struct {
	mu     sync.Mutex
	active int
	shown  *observable.Property[bool]
	notify observable.Queue
}

// NewActivityIndicator creates an idle indicator.
func NewActivityIndicator() *ActivityIndicator {
	return &ActivityIndicator{shown: observable.NewProperty(false)}
}

// Visible is true while at least one tracked source is active.
func (a *ActivityIndicator) Visible() *observable.Property[bool] { return a.shown }

// Track follows source until the returned Disposable is disposed. A source
// that is active when disposed stops counting.
func (a *ActivityIndicator) Track(source *observable.Property[bool]) observable.Disposable {
	var mu sync.Mutex
	counted := false

	set := func(active bool) {
		mu.Lock()
		defer mu.Unlock()
		if active == counted {
			return
		}
		counted = active
		if active {
			a.add(1)
		} else {
			a.add(-1)
		}
	}

	sub := source.Subscribe(set)
	return observable.DisposableFunc(func() {
		sub.Dispose()
		set(false)
	})
}

// add updates the count and the flag under one lock, so lists on different
// executors cannot leave the flag out of step with the count.
func (a *ActivityIndicator) add(delta int) {
	a.mu.Lock()
	a.active += delta
	if visible := a.active > 0; visible != a.shown.Value() {
		a.notify.Enqueue(a.shown.Store(visible))
	}
	a.mu.Unlock()

	a.notify.Drain()
}
