package rx

import (
	"log/slog"
	"sync"
)

// Teardown releases resources held by a running producer.
// A nil Teardown is valid and means "nothing to release".
type Teardown func()

// Observer is the passive record of callbacks that receives events.
// Any field may be nil.
//
// A nil Error callback selects the unhandled-error policy: the error is
// re-raised as a panic (see Subscription.Error).
type Observer[T any] struct {
	Next     func(T)
	Error    func(error)
	Complete func()
}

// Subscription is the live handle created by Observable.Subscribe.
//
// The same value is handed to the producer as its sink, so producers push
// events with Next, Error and Complete, and may register extra cleanup with
// Add.
//
// INVARIANTS:
//   - Next is forwarded only while the subscription is open
//   - Error and Complete are delivered at most once and close the subscription
//   - Every teardown runs exactly once after the subscription closes
//   - Teardown added after close runs immediately
//
// Thread-safety: all methods are safe for concurrent use, and none holds a
// lock while calling user code, so handlers may call Unsubscribe (or push
// more events) reentrantly. Emissions into one subscription should still not
// be concurrent: ordering between concurrent Next calls is unspecified.
type Subscription[T any] struct {
	observer Observer[T]

	mu        sync.Mutex
	closed    bool       // no more events are delivered
	released  bool       // teardowns have run
	teardowns []Teardown // pending cleanup, in registration order
}

// newSubscription creates an open subscription delivering to observer.
func newSubscription[T any](observer Observer[T]) *Subscription[T] {
	return &Subscription[T]{observer: observer}
}

// Next delivers a value to the observer if the subscription is open.
//
// A panic raised by the Next callback is recovered and delivered through
// Error, except for unhandled-error panics which keep unwinding.
func (s *Subscription[T]) Next(value T) {
	if s.Closed() || s.observer.Next == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			if mustUnwind(r) {
				panic(r)
			}
			slog.Debug("rx: recovered panic in next handler", "panic", r)
			s.Error(errorFromPanic(r))
		}
	}()
	s.observer.Next(value)
}

// Error delivers a terminal error and closes the subscription.
// Calls after the subscription closed are no-ops.
//
// If the observer has no Error callback the error is re-raised: Error panics
// with a *RuntimeError of code ErrCodeUnhandled wrapping err. A panic in the
// Error callback itself leaves as ErrCodeHandlerPanic. Teardowns still run
// before either panic leaves Error.
func (s *Subscription[T]) Error(err error) {
	if !s.close() {
		return
	}
	defer s.release()
	if s.observer.Error == nil {
		panic(NewUnhandledError(err))
	}
	defer rethrowTerminal()
	s.observer.Error(err)
}

// Complete delivers completion and closes the subscription.
// Calls after the subscription closed are no-ops.
//
// A panic in the Complete callback leaves as ErrCodeHandlerPanic after the
// teardowns ran.
func (s *Subscription[T]) Complete() {
	if !s.close() {
		return
	}
	defer s.release()
	if s.observer.Complete != nil {
		defer rethrowTerminal()
		s.observer.Complete()
	}
}

// Unsubscribe closes the subscription without notifying the observer and
// runs its teardowns. Idempotent: teardowns run at most once no matter how
// often, or from where, Unsubscribe is called.
func (s *Subscription[T]) Unsubscribe() {
	s.close()
	s.release()
}

// Closed reports whether the subscription stopped delivering events.
func (s *Subscription[T]) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Add registers cleanup to run when the subscription closes.
// If the subscription already released its resources, teardown runs now.
func (s *Subscription[T]) Add(teardown Teardown) {
	if teardown == nil {
		return
	}
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		teardown()
		return
	}
	s.teardowns = append(s.teardowns, teardown)
	s.mu.Unlock()
}

// close marks the subscription closed. Returns true for the transition only.
func (s *Subscription[T]) close() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.closed = true
	return true
}

// release runs pending teardowns once, outside the lock.
func (s *Subscription[T]) release() {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.released = true
	teardowns := s.teardowns
	s.teardowns = nil
	s.mu.Unlock()

	for _, teardown := range teardowns {
		teardown()
	}
}

// forward returns an Observer that relays every event into dst.
func forward[T any](dst *Subscription[T]) Observer[T] {
	return Observer[T]{
		Next:     dst.Next,
		Error:    dst.Error,
		Complete: dst.Complete,
	}
}
