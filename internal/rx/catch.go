package rx

import "sync"

// CatchError recovers from upstream errors.
//
// On error, selector receives the error and caught (the source with this
// CatchError applied, so returning it resubscribes from scratch) and returns
// the Observable to continue with. The replacement is subscribed against the
// same downstream, and its own errors go through selector again. A nil
// replacement completes the stream; a panic in selector is forwarded as the
// downstream error.
func CatchError[T any](selector func(err error, caught *Observable[T]) *Observable[T]) OperatorFunc[T, T] {
	return func(source *Observable[T]) *Observable[T] {
		var caught *Observable[T]
		caught = New(func(dst *Subscription[T]) Teardown {
			st := &catchState[T]{dst: dst, selector: selector, caught: caught}
			dst.Add(st.unsubscribe)
			st.subscribe(source)
			return nil
		})
		return caught
	}
}

// catchState tracks the upstream currently feeding dst.
type catchState[T any] struct {
	dst      *Subscription[T]
	selector func(error, *Observable[T]) *Observable[T]
	caught   *Observable[T]

	mu      sync.Mutex
	current *Subscription[T]
}

func (c *catchState[T]) subscribe(source *Observable[T]) {
	if c.dst.Closed() {
		return
	}
	sub := newSubscription(Observer[T]{
		Next:     c.dst.Next,
		Error:    c.handle,
		Complete: c.dst.Complete,
	})
	c.mu.Lock()
	c.current = sub
	c.mu.Unlock()
	source.run(sub)
}

func (c *catchState[T]) handle(err error) {
	if c.dst.Closed() {
		return
	}
	next, selErr := c.selectNext(err)
	if selErr != nil {
		c.dst.Error(selErr)
		return
	}
	if next == nil {
		c.dst.Complete()
		return
	}
	c.subscribe(next)
}

func (c *catchState[T]) selectNext(err error) (next *Observable[T], selErr error) {
	defer func() {
		if r := recover(); r != nil {
			if mustUnwind(r) {
				panic(r)
			}
			selErr = errorFromPanic(r)
		}
	}()
	return c.selector(err, c.caught), nil
}

func (c *catchState[T]) unsubscribe() {
	c.mu.Lock()
	sub := c.current
	c.mu.Unlock()
	if sub != nil {
		sub.Unsubscribe()
	}
}
