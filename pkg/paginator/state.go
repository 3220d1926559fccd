package paginator

import "fmt"

// Status is the kind of a LoadingState.
type Status int

const (
	// StatusDefault means no fetch was ever started.
	StatusDefault Status = iota

	// StatusLoading means a fetch is in flight.
	StatusLoading

	// StatusFailed means the most recent fetch failed.
	StatusFailed

	// StatusLoaded means the most recent fetch succeeded.
	StatusLoaded
)

// String returns the lower-case name of the status.
func (s Status) String() string {
	switch s {
	case StatusDefault:
		return "default"
	case StatusLoading:
		return "loading"
	case StatusFailed:
		return "failed"
	case StatusLoaded:
		return "loaded"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// LoadingState is the status of the most recent fetch attempt for a list.
// Err is set only when Status is StatusFailed.
type LoadingState struct {
	Status Status
	Err    error
}

// Default returns the state of a list that never loaded.
func Default() LoadingState { return LoadingState{Status: StatusDefault} }

// Loading returns the in-flight state.
func Loading() LoadingState { return LoadingState{Status: StatusLoading} }

// Loaded returns the success state.
func Loaded() LoadingState { return LoadingState{Status: StatusLoaded} }

// Failed returns the failure state carrying err unmodified.
func Failed(err error) LoadingState { return LoadingState{Status: StatusFailed, Err: err} }

// IsLoading reports whether a fetch is in flight.
func (s LoadingState) IsLoading() bool { return s.Status == StatusLoading }

// IsFailed reports whether the most recent fetch failed.
func (s LoadingState) IsFailed() bool { return s.Status == StatusFailed }

// Equal compares status and error identity.
func (s LoadingState) Equal(other LoadingState) bool {
	return s.Status == other.Status && s.Err == other.Err
}

// String implements fmt.Stringer.
func (s LoadingState) String() string {
	if s.Status == StatusFailed && s.Err != nil {
		return fmt.Sprintf("failed(%v)", s.Err)
	}
	return s.Status.String()
}
