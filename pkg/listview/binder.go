package listview

import (
	"github.com/Sternrassler/streamlist/pkg/observable"
	"github.com/Sternrassler/streamlist/pkg/paginator"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Bind renders a Presentation now and again whenever either the state or the
// items change. The returned Disposable stops rendering.
func Bind[T any](
	state *observable.Property[paginator.LoadingState],
	items *observable.Property[[]T],
	texts Texts,
	render func(Presentation),
) observable.Disposable {
	logger := log.With().Str("component", "listview").Logger()
	return bind(logger, state, items, texts, render)
}

func bind[T any](
	logger zerolog.Logger,
	state *observable.Property[paginator.LoadingState],
	items *observable.Property[[]T],
	texts Texts,
	render func(Presentation),
) observable.Disposable {
	update := func() {
		s := state.Value()
		p := Resolve(s, len(items.Value()) == 0, texts)
		logPresentation(logger, s, p)
		render(p)
	}

	var subs observable.CompositeDisposable
	subs.Add(state.Observe(func(paginator.LoadingState) { update() }))
	subs.Add(items.Observe(func([]T) { update() }))
	update()

	return &subs
}
