package observable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProperty_SubscribeDeliversCurrentValue(t *testing.T) {
	p := NewProperty(3)

	var got []int
	d := p.Subscribe(func(v int) { got = append(got, v) })
	defer d.Dispose()

	p.Set(4)
	p.Set(5)

	assert.Equal(t, []int{3, 4, 5}, got)
	assert.Equal(t, 5, p.Value())
}

func TestProperty_ObserveSkipsCurrentValue(t *testing.T) {
	p := NewProperty("a")

	var got []string
	p.Observe(func(v string) { got = append(got, v) })
	p.Set("b")

	assert.Equal(t, []string{"b"}, got)
}

func TestProperty_DisposeStopsNotifications(t *testing.T) {
	p := NewProperty(0)

	calls := 0
	d := p.Observe(func(int) { calls++ })
	p.Set(1)
	d.Dispose()
	d.Dispose()
	p.Set(2)

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, p.Len())
}

func TestProperty_StoreDefersNotification(t *testing.T) {
	a := NewProperty(0)
	b := NewProperty(0)

	var seen [][2]int
	a.Observe(func(v int) { seen = append(seen, [2]int{v, b.Value()}) })

	publishA := a.Store(1)
	publishB := b.Store(10)
	require.Empty(t, seen)

	var q Queue
	q.Publish(publishA, publishB)

	// The sibling property was already updated when a's listener ran.
	assert.Equal(t, [][2]int{{1, 10}}, seen)
}

func TestQueue_NestedPublishRunsAfterCurrentDelivery(t *testing.T) {
	var q Queue
	p := NewProperty(0)

	var delivered []int
	p.Observe(func(v int) { delivered = append(delivered, v) })
	p.Observe(func(v int) {
		if v == 1 {
			q.Publish(p.Store(2))
		}
	})
	var last int
	p.Observe(func(v int) { last = v })

	q.Publish(p.Store(1))

	assert.Equal(t, []int{1, 2}, delivered)
	assert.Equal(t, 2, last, "the final notification matches the current value")
	assert.Equal(t, 2, p.Value())
}

func TestQueue_RecoversAfterPanic(t *testing.T) {
	var q Queue
	p := NewProperty(0)
	p.Observe(func(v int) {
		if v == 1 {
			panic("boom")
		}
	})

	require.Panics(t, func() { q.Publish(p.Store(1)) })

	got := 0
	p.Observe(func(v int) { got = v })
	q.Publish(p.Store(2))
	assert.Equal(t, 2, got)
}

func TestProperty_ListenerDisposedDuringPublish(t *testing.T) {
	p := NewProperty(0)

	var second Disposable
	secondCalls := 0
	p.Observe(func(int) { second.Dispose() })
	second = p.Observe(func(int) { secondCalls++ })

	p.Set(1)

	assert.Equal(t, 0, secondCalls)
}

func TestCompositeDisposable(t *testing.T) {
	var order []int
	var c CompositeDisposable

	c.Add(DisposableFunc(func() { order = append(order, 1) }))
	c.Add(DisposableFunc(func() { order = append(order, 2) }))
	c.Add(nil)

	c.Dispose()
	c.Dispose()
	assert.Equal(t, []int{2, 1}, order)
	assert.True(t, c.IsDisposed())

	late := false
	c.Add(DisposableFunc(func() { late = true }))
	assert.True(t, late, "resources added after disposal are released immediately")
}

func TestCompositeDisposable_ReleasesPropertySubscriptions(t *testing.T) {
	p := NewProperty(0)
	var c CompositeDisposable

	c.Add(p.Observe(func(int) {}))
	c.Add(p.Observe(func(int) {}))
	require.Equal(t, 2, p.Len())

	c.Dispose()
	assert.Equal(t, 0, p.Len())
}
