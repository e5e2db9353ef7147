package rx

import (
	"context"
	"sync"
)

// ToSlice subscribes to src and blocks until it terminates, returning every
// value received. If ctx ends first the subscription is released and
// ctx.Err() is returned along with the values collected so far.
func ToSlice[T any](ctx context.Context, src *Observable[T]) ([]T, error) {
	var (
		mu     sync.Mutex
		values []T
		result error
	)
	done := make(chan struct{})
	sub := src.Subscribe(Observer[T]{
		Next: func(v T) {
			mu.Lock()
			values = append(values, v)
			mu.Unlock()
		},
		Error: func(err error) {
			mu.Lock()
			result = err
			mu.Unlock()
			close(done)
		},
		Complete: func() { close(done) },
	})

	select {
	case <-done:
	case <-ctx.Done():
		sub.Unsubscribe()
		mu.Lock()
		defer mu.Unlock()
		return values, ctx.Err()
	}

	mu.Lock()
	defer mu.Unlock()
	return values, result
}
