// Package executor provides sequential execution contexts.
//
// List state is owned by exactly one execution context. Work that finishes
// elsewhere (network I/O on its own goroutine) is handed back with Do so that
// all mutations of that state happen one after another.
package executor

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrClosed is returned by Sync after the loop has been closed.
var ErrClosed = errors.New("executor closed")

// Executor runs functions on an owning execution context.
type Executor interface {
	// Do schedules fn. Functions run one at a time in submission order.
	Do(fn func())
}

// Inline runs functions immediately on the calling goroutine. It is the
// executor for callers that already serialize all access themselves, such as
// a single-goroutine CLI or a test.
type Inline struct{}

// Do runs fn right away.
func (Inline) Do(fn func()) { fn() }

// Serial is a run loop backed by a single goroutine.
type Serial struct {
	mu     sync.Mutex
	queue  []func()
	wake   chan struct{}
	done   chan struct{}
	closed bool
	logger zerolog.Logger
}

// NewSerial starts a run loop. Call Close to stop it.
func NewSerial() *Serial {
	s := &Serial{
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
		logger: log.With().Str("component", "executor").Logger(),
	}
	go s.run()
	return s
}

// Do enqueues fn. It never blocks. Functions submitted after Close are dropped.
func (s *Serial) Do(fn func()) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.logger.Debug().Msg("Dropping task submitted after close")
		return
	}
	s.queue = append(s.queue, fn)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Sync runs fn on the loop and waits for it, or for ctx to end. Because the
// queue is FIFO, everything submitted before Sync has run when it returns.
func (s *Serial) Sync(ctx context.Context, fn func()) error {
	finished := make(chan struct{})

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.queue = append(s.queue, func() {
		defer close(finished)
		if fn != nil {
			fn()
		}
	})
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}

	select {
	case <-finished:
		return nil
	case <-s.done:
		// The loop drains the queue before it stops, so fn may have run.
		select {
		case <-finished:
			return nil
		default:
			return ErrClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the loop after the queued functions have run.
func (s *Serial) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	<-s.done
}

func (s *Serial) run() {
	defer close(s.done)

	for {
		s.mu.Lock()
		batch := s.queue
		s.queue = nil
		closed := s.closed
		s.mu.Unlock()

		for _, fn := range batch {
			s.safeRun(fn)
		}

		if len(batch) > 0 {
			continue
		}
		if closed {
			return
		}
		<-s.wake
	}
}

func (s *Serial) safeRun(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Interface("panic", r).Msg("Task panicked")
		}
	}()
	fn()
}
