package rx

import (
	"slices"
	"sync"
	"sync/atomic"

	list "github.com/bahlo/generic-list-go"
	"github.com/samber/lo"
)

// Merge subscribes to every source at once and forwards all values.
//
// The first error from any source is forwarded and unsubscribes the others.
// The result completes once every source has completed. Merge of a single
// source returns that source unchanged; Merge of none is Empty.
func Merge[T any](sources ...*Observable[T]) *Observable[T] {
	switch len(sources) {
	case 0:
		return Empty[T]()
	case 1:
		return sources[0]
	}
	srcs := slices.Clone(sources)
	return New(func(dst *Subscription[T]) Teardown {
		var remaining atomic.Int64
		remaining.Store(int64(len(srcs)))
		for _, src := range srcs {
			if dst.Closed() {
				break
			}
			subscribeLinked(src, dst, Observer[T]{
				Next:  dst.Next,
				Error: dst.Error,
				Complete: func() {
					if remaining.Add(-1) == 0 {
						dst.Complete()
					}
				},
			})
		}
		return nil
	})
}

// Concat subscribes to sources one after another: each source is subscribed
// only after the previous one completed. An error stops the chain.
func Concat[T any](sources ...*Observable[T]) *Observable[T] {
	srcs := slices.Clone(sources)
	return New(func(dst *Subscription[T]) Teardown {
		st := &concatState[T]{dst: dst, sources: srcs}
		dst.Add(st.unsubscribe)
		st.subscribeNext()
		return nil
	})
}

type concatState[T any] struct {
	dst     *Subscription[T]
	sources []*Observable[T]

	mu      sync.Mutex
	index   int
	current *Subscription[T]
}

func (c *concatState[T]) subscribeNext() {
	if c.dst.Closed() {
		return
	}
	c.mu.Lock()
	if c.index >= len(c.sources) {
		c.mu.Unlock()
		c.dst.Complete()
		return
	}
	src := c.sources[c.index]
	c.index++
	sub := newSubscription(Observer[T]{
		Next:     c.dst.Next,
		Error:    c.dst.Error,
		Complete: c.subscribeNext,
	})
	c.current = sub
	c.mu.Unlock()
	src.run(sub)
}

func (c *concatState[T]) unsubscribe() {
	c.mu.Lock()
	sub := c.current
	c.mu.Unlock()
	if sub != nil {
		sub.Unsubscribe()
	}
}

// CombineLatest emits the latest value of every source each time any source
// emits, once all of them have emitted at least once.
//
// Emitted slices are fresh copies owned by the receiver. The result completes
// when every source has completed, or as soon as a source completes without
// having produced a value (no combination is possible any more).
func CombineLatest[T any](sources ...*Observable[T]) *Observable[[]T] {
	srcs := slices.Clone(sources)
	return New(func(dst *Subscription[[]T]) Teardown {
		if len(srcs) == 0 {
			dst.Complete()
			return nil
		}
		st := &combineState[T]{
			dst:     dst,
			values:  make([]T, len(srcs)),
			has:     make([]bool, len(srcs)),
			waiting: len(srcs),
		}
		for i, src := range srcs {
			if dst.Closed() {
				break
			}
			subscribeLinked(src, dst, Observer[T]{
				Next:     func(v T) { st.next(i, v) },
				Error:    dst.Error,
				Complete: func() { st.complete(i) },
			})
		}
		return nil
	})
}

type combineState[T any] struct {
	dst *Subscription[[]T]

	mu      sync.Mutex
	values  []T
	has     []bool
	waiting int // sources that have not produced a value yet
	done    int // sources that completed
}

func (c *combineState[T]) next(i int, v T) {
	c.mu.Lock()
	c.values[i] = v
	if !c.has[i] {
		c.has[i] = true
		c.waiting--
	}
	if c.waiting > 0 {
		c.mu.Unlock()
		return
	}
	out := slices.Clone(c.values)
	c.mu.Unlock()
	c.dst.Next(out)
}

func (c *combineState[T]) complete(i int) {
	c.mu.Lock()
	c.done++
	finished := !c.has[i] || c.done == len(c.values)
	c.mu.Unlock()
	if finished {
		c.dst.Complete()
	}
}

// Zip pairs values positionally: the n-th emission combines the n-th value of
// every source. Values waiting for a partner are buffered, never dropped.
//
// The result completes once a completed source has nothing left buffered,
// since no further combination can include it.
func Zip[T any](sources ...*Observable[T]) *Observable[[]T] {
	srcs := slices.Clone(sources)
	return New(func(dst *Subscription[[]T]) Teardown {
		if len(srcs) == 0 {
			dst.Complete()
			return nil
		}
		st := &zipState[T]{
			dst:    dst,
			queues: make([]*list.List[T], len(srcs)),
			done:   make([]bool, len(srcs)),
		}
		for i := range st.queues {
			st.queues[i] = list.New[T]()
		}
		for i, src := range srcs {
			if dst.Closed() {
				break
			}
			subscribeLinked(src, dst, Observer[T]{
				Next:     func(v T) { st.next(i, v) },
				Error:    dst.Error,
				Complete: func() { st.complete(i) },
			})
		}
		return nil
	})
}

type zipState[T any] struct {
	dst *Subscription[[]T]

	mu     sync.Mutex
	queues []*list.List[T]
	done   []bool
}

func (z *zipState[T]) next(i int, v T) {
	z.mu.Lock()
	z.queues[i].PushBack(v)
	ready := lo.EveryBy(z.queues, func(q *list.List[T]) bool { return q.Len() > 0 })
	if !ready {
		z.mu.Unlock()
		return
	}
	out := make([]T, len(z.queues))
	for j, q := range z.queues {
		out[j] = q.Remove(q.Front())
	}
	exhausted := z.exhausted()
	z.mu.Unlock()

	z.dst.Next(out)
	if exhausted {
		z.dst.Complete()
	}
}

func (z *zipState[T]) complete(i int) {
	z.mu.Lock()
	z.done[i] = true
	exhausted := z.queues[i].Len() == 0
	z.mu.Unlock()
	if exhausted {
		z.dst.Complete()
	}
}

// exhausted reports whether a completed source has an empty queue.
// Caller holds mu.
func (z *zipState[T]) exhausted() bool {
	for i, q := range z.queues {
		if z.done[i] && q.Len() == 0 {
			return true
		}
	}
	return false
}
