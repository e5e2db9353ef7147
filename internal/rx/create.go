package rx

import (
	"context"
	"iter"
)

// Of emits values in order, then completes.
// Emission stops early if the subscriber unsubscribes mid-way.
func Of[T any](values ...T) *Observable[T] {
	return New(func(sub *Subscription[T]) Teardown {
		for _, v := range values {
			if sub.Closed() {
				return nil
			}
			sub.Next(v)
		}
		sub.Complete()
		return nil
	})
}

// Empty completes immediately without emitting.
func Empty[T any]() *Observable[T] {
	return New(func(sub *Subscription[T]) Teardown {
		sub.Complete()
		return nil
	})
}

// Never neither emits nor terminates.
func Never[T any]() *Observable[T] {
	return New(func(*Subscription[T]) Teardown { return nil })
}

// ThrowError fails immediately with err.
func ThrowError[T any](err error) *Observable[T] {
	return New(func(sub *Subscription[T]) Teardown {
		sub.Error(err)
		return nil
	})
}

// Defer calls factory on every subscription and mirrors the Observable it
// returns. A nil result completes; a panic is delivered as the error.
func Defer[T any](factory func() *Observable[T]) *Observable[T] {
	return New(func(sub *Subscription[T]) Teardown {
		src := factory()
		if src == nil {
			sub.Complete()
			return nil
		}
		subscribeLinked(src, sub, forward(sub))
		return nil
	})
}

// Interop is the stream shape common to Go reactive libraries: values are
// pushed to next and the stream ends with complete(err) (nil on success).
// Observe should stop once ctx is cancelled.
type Interop[T any] interface {
	Observe(ctx context.Context, next func(T), complete func(error))
}

// From converts input into an Observable.
//
// Supported inputs:
//   - *Observable[T], or any Source[T] (subjects)
//   - Interop[T]: the context is cancelled on unsubscribe
//   - []T: emitted like Of
//   - <-chan T, chan T: drained by a pump goroutine until closed or unsubscribed
//   - iter.Seq[T], func(func(T) bool): iterated synchronously
//   - Producer[T], func(*Subscription[T]) Teardown: wrapped with New
//
// Any other input produces an Observable that fails with ErrCodeNotObservable.
func From[T any](input any) *Observable[T] {
	switch src := input.(type) {
	case *Observable[T]:
		return src
	case Source[T]:
		return src.AsObservable()
	case Interop[T]:
		return fromInterop(src)
	case []T:
		return Of(src...)
	case <-chan T:
		return fromChan(src)
	case chan T:
		return fromChan(src)
	case iter.Seq[T]:
		return fromSeq(src)
	case func(func(T) bool):
		return fromSeq(src)
	case Producer[T]:
		return New(src)
	case func(*Subscription[T]) Teardown:
		return New(src)
	}
	return ThrowError[T](NewNotObservableError(input))
}

func fromInterop[T any](src Interop[T]) *Observable[T] {
	return New(func(sub *Subscription[T]) Teardown {
		ctx, cancel := context.WithCancel(context.Background())
		// Registered first so a synchronous Observe sees the cancellation.
		sub.Add(Teardown(cancel))
		src.Observe(ctx, sub.Next, func(err error) {
			terminate(sub, err)
		})
		return nil
	})
}

func fromChan[T any](ch <-chan T) *Observable[T] {
	return New(func(sub *Subscription[T]) Teardown {
		done := make(chan struct{})
		go func() {
			for {
				select {
				case <-done:
					return
				case v, ok := <-ch:
					if !ok {
						sub.Complete()
						return
					}
					sub.Next(v)
				}
			}
		}()
		return func() { close(done) }
	})
}

func fromSeq[T any](seq iter.Seq[T]) *Observable[T] {
	return New(func(sub *Subscription[T]) Teardown {
		for v := range seq {
			if sub.Closed() {
				return nil
			}
			sub.Next(v)
		}
		sub.Complete()
		return nil
	})
}
