package borsh

import (
	"fmt"
	"reflect"
	"sync"
)

// cache is a process-wide map of per-type values that are expensive
// to build, such as codec functions.
type cache[V any] struct {
	m sync.Map // reflect.Type -> *cacheEntry[V]
}

type cacheEntry[V any] struct {
	done chan struct{}
	val  V
	err  error
}

func (e *cacheEntry[V]) wait() (V, error) {
	<-e.done
	return e.val, e.err
}

// Get returns the cached value for t, calling build to produce it if
// needed.
//
// If t is already being built, either further up the current call
// stack or concurrently by another goroutine, Get returns the result
// of pending instead. pending receives a function that blocks until
// the in-progress build finishes, and must not call it before Get
// returns. If pending is nil, Get calls build again and does not cache
// the result.
func (c *cache[V]) Get(t reflect.Type, build func(reflect.Type) (V, error), pending func(wait func() (V, error)) V) (V, error) {
	if prev, ok := c.m.Load(t); ok {
		return c.existing(t, prev, build, pending)
	}

	ent := &cacheEntry[V]{done: make(chan struct{})}
	if prev, loaded := c.m.LoadOrStore(t, ent); loaded {
		return c.existing(t, prev, build, pending)
	}

	finished := false
	defer func() {
		if !finished {
			ent.err = fmt.Errorf("building %s panicked", t)
			c.m.Delete(t)
		}
		close(ent.done)
	}()
	ent.val, ent.err = build(t)
	finished = true
	return ent.val, ent.err
}

func (c *cache[V]) existing(t reflect.Type, prev any, build func(reflect.Type) (V, error), pending func(wait func() (V, error)) V) (V, error) {
	ent, ok := prev.(*cacheEntry[V])
	if !ok {
		panic(fmt.Sprintf("mystery value %v (%T) in cache", prev, prev))
	}
	select {
	case <-ent.done:
		return ent.val, ent.err
	default:
	}
	if pending == nil {
		return build(t)
	}
	return pending(ent.wait), nil
}
