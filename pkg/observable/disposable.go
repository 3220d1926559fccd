package observable

import "sync"

// Disposable releases a subscription or other scoped resource.
type Disposable interface {
	Dispose()
}

// DisposableFunc adapts a function to Disposable. Calling Dispose more than
// once runs the function once.
func DisposableFunc(fn func()) Disposable {
	return &funcDisposable{fn: fn}
}

type funcDisposable struct {
	once sync.Once
	fn   func()
}

func (d *funcDisposable) Dispose() {
	d.once.Do(d.fn)
}

// CompositeDisposable disposes a group of resources together.
// Anything added after Dispose is disposed immediately.
type CompositeDisposable struct {
	mu       sync.Mutex
	items    []Disposable
	disposed bool
}

// Add registers d with the group.
func (c *CompositeDisposable) Add(d Disposable) {
	if d == nil {
		return
	}

	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		d.Dispose()
		return
	}
	c.items = append(c.items, d)
	c.mu.Unlock()
}

// Dispose releases every registered resource in reverse order of registration.
func (c *CompositeDisposable) Dispose() {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.disposed = true
	items := c.items
	c.items = nil
	c.mu.Unlock()

	for i := len(items) - 1; i >= 0; i-- {
		items[i].Dispose()
	}
}

// IsDisposed reports whether Dispose has been called.
func (c *CompositeDisposable) IsDisposed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disposed
}
