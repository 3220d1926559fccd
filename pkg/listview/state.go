// Package listview decides which overlay a list screen shows for a given
// loading state: the empty placeholder, the spinner, the error panel with its
// retry button, or the content itself.
package listview

import (
	"github.com/Sternrassler/streamlist/pkg/paginator"
	"github.com/rs/zerolog"
)

// DefaultEmptyText is shown when a list loaded nothing.
const DefaultEmptyText = "NOTHING HERE"

// Texts overrides the messages of the overlays.
type Texts struct {
	// Empty replaces DefaultEmptyText when set.
	Empty string

	// Error replaces the error's own message when set.
	Error string
}

// Presentation is what a list screen shows.
type Presentation struct {
	Empty         bool
	Loading       bool
	Error         bool
	ContentHidden bool

	// LoadMoreFailed is set when loading a further page failed while content
	// is on screen. The content stays visible.
	LoadMoreFailed bool

	// Message is the text of the empty or error overlay.
	Message string
}

// Resolve maps a loading state and whether the list has content to a
// Presentation.
func Resolve(state paginator.LoadingState, isContentEmpty bool, texts Texts) Presentation {
	p := Presentation{ContentHidden: isContentEmpty}

	switch {
	case (state.Status == paginator.StatusDefault || state.Status == paginator.StatusLoaded) && isContentEmpty:
		p.Empty = true
		p.Message = texts.Empty
		if p.Message == "" {
			p.Message = DefaultEmptyText
		}
	case state.Status == paginator.StatusLoading && isContentEmpty:
		p.Loading = true
	case state.Status == paginator.StatusFailed && isContentEmpty:
		p.Error = true
		p.Message = errorMessage(state.Err, texts)
	case state.Status == paginator.StatusFailed:
		p.LoadMoreFailed = true
		p.Message = errorMessage(state.Err, texts)
	}

	return p
}

func errorMessage(err error, texts Texts) string {
	if texts.Error != "" {
		return texts.Error
	}
	if err != nil {
		return err.Error()
	}
	return ""
}

// logPresentation records failures that do not take over the screen.
func logPresentation(logger zerolog.Logger, state paginator.LoadingState, p Presentation) {
	if p.LoadMoreFailed {
		logger.Warn().Err(state.Err).Msg("Error loading more items")
	}
}
