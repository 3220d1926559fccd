package paginator

import (
	"errors"
	"testing"
)

func TestLoadingState_String(t *testing.T) {
	tests := []struct {
		name  string
		state LoadingState
		want  string
	}{
		{name: "default", state: Default(), want: "default"},
		{name: "loading", state: Loading(), want: "loading"},
		{name: "loaded", state: Loaded(), want: "loaded"},
		{name: "failed", state: Failed(errors.New("timeout")), want: "failed(timeout)"},
		{name: "failed without error", state: LoadingState{Status: StatusFailed}, want: "failed"},
		{name: "unknown", state: LoadingState{Status: Status(42)}, want: "status(42)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoadingState_Predicates(t *testing.T) {
	if !Loading().IsLoading() {
		t.Error("Loading().IsLoading() = false")
	}
	if Loaded().IsLoading() {
		t.Error("Loaded().IsLoading() = true")
	}
	if !Failed(errors.New("x")).IsFailed() {
		t.Error("Failed().IsFailed() = false")
	}
	if Default().IsFailed() {
		t.Error("Default().IsFailed() = true")
	}
}

func TestLoadingState_Equal(t *testing.T) {
	err := errors.New("x")

	if !Failed(err).Equal(Failed(err)) {
		t.Error("same error should be equal")
	}
	if Failed(err).Equal(Failed(errors.New("x"))) {
		t.Error("different error values should not be equal")
	}
	if Loading().Equal(Loaded()) {
		t.Error("different statuses should not be equal")
	}
}
