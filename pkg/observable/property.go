// Package observable provides push-based observable values and scoped
// disposal of subscriptions.
//
// A Property holds a current value that can be read synchronously and notifies
// its subscribers on every change, in the order the changes happen, on the
// goroutine that performed the change. Properties are meant to be owned by a
// single sequential execution context (see pkg/executor); reads are safe from
// any goroutine.
package observable

import (
	"sync"
)

// Property is a value with change notifications.
type Property[T any] struct {
	mu        sync.RWMutex
	value     T
	nextID    uint64
	listeners []listener[T]
}

type listener[T any] struct {
	id uint64
	fn func(T)
}

// NewProperty creates a property holding initial.
func NewProperty[T any](initial T) *Property[T] {
	return &Property[T]{value: initial}
}

// Value returns the current value.
func (p *Property[T]) Value() T {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.value
}

// Set stores v and notifies subscribers.
func (p *Property[T]) Set(v T) {
	p.Store(v)()
}

// Store replaces the current value without notifying anyone and returns the
// function that delivers the notification. Callers that update several
// properties together store all of them first and publish afterwards, so a
// subscriber reading a sibling property never sees a half-applied update.
func (p *Property[T]) Store(v T) (publish func()) {
	p.mu.Lock()
	p.value = v
	snapshot := make([]listener[T], len(p.listeners))
	copy(snapshot, p.listeners)
	p.mu.Unlock()

	return func() {
		for _, l := range snapshot {
			if p.active(l.id) {
				l.fn(v)
			}
		}
	}
}

// Observe registers fn for future changes only.
func (p *Property[T]) Observe(fn func(T)) Disposable {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.nextID++
	id := p.nextID
	p.listeners = append(p.listeners, listener[T]{id: id, fn: fn})

	return DisposableFunc(func() { p.remove(id) })
}

// Subscribe delivers the current value to fn immediately and then every change.
func (p *Property[T]) Subscribe(fn func(T)) Disposable {
	d := p.Observe(fn)
	fn(p.Value())
	return d
}

// Len returns the number of active subscribers.
func (p *Property[T]) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.listeners)
}

func (p *Property[T]) active(id uint64) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, l := range p.listeners {
		if l.id == id {
			return true
		}
	}
	return false
}

func (p *Property[T]) remove(id uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, l := range p.listeners {
		if l.id == id {
			p.listeners = append(p.listeners[:i:i], p.listeners[i+1:]...)
			return
		}
	}
}

// Queue delivers batches of publish functions in FIFO order. A batch
// published while another is being delivered, for example by a subscriber
// that changes state from inside its callback, waits until the current
// delivery has finished, so every subscriber sees changes in the order they
// were made.
//
// The goroutine that starts a delivery drains the queue, including batches
// other goroutines append meanwhile.
type Queue struct {
	mu       sync.Mutex
	pending  []func()
	draining bool
}

// Publish appends fns to the queue and, unless a delivery is already running,
// delivers everything queued before returning.
func (q *Queue) Publish(fns ...func()) {
	q.Enqueue(fns...)
	q.Drain()
}

// Enqueue appends fns without delivering them. Callers that must fix the
// delivery order while holding their own lock enqueue under it and Drain
// after releasing it.
func (q *Queue) Enqueue(fns ...func()) {
	q.mu.Lock()
	q.pending = append(q.pending, fns...)
	q.mu.Unlock()
}

// Drain delivers queued functions until the queue is empty. It returns
// immediately when another call is already draining.
func (q *Queue) Drain() {
	q.mu.Lock()
	if q.draining {
		q.mu.Unlock()
		return
	}
	q.draining = true
	q.mu.Unlock()

	finished := false
	defer func() {
		if !finished {
			// A panicking subscriber must not wedge later deliveries.
			q.mu.Lock()
			q.draining = false
			q.mu.Unlock()
		}
	}()

	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.draining = false
			q.mu.Unlock()
			finished = true
			return
		}
		fn := q.pending[0]
		q.pending = q.pending[1:]
		q.mu.Unlock()

		fn()
	}
}
