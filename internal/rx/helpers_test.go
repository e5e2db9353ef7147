package rx_test

import (
	"github.com/roach88/rxflow/internal/rx"
)

// recording captures everything a synchronous subscription received.
type recording[T any] struct {
	values    []T
	err       error
	completed bool
	sub       *rx.Subscription[T]
}

func record[T any](obs *rx.Observable[T]) *recording[T] {
	r := &recording[T]{}
	r.sub = obs.Subscribe(rx.Observer[T]{
		Next:     func(v T) { r.values = append(r.values, v) },
		Error:    func(err error) { r.err = err },
		Complete: func() { r.completed = true },
	})
	return r
}

// counted wraps a never-ending source that counts subscribes and teardowns.
func counted(subscribes, teardowns *int) *rx.Observable[int] {
	return rx.New(func(*rx.Subscription[int]) rx.Teardown {
		*subscribes++
		return func() { *teardowns++ }
	})
}
