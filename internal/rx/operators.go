package rx

import "log/slog"

// Map transforms every value with fn.
func Map[T, R any](fn func(T) R) OperatorFunc[T, R] {
	return Operate(func(dst *Subscription[R]) Observer[T] {
		return Observer[T]{Next: func(v T) { dst.Next(fn(v)) }}
	})
}

// Filter forwards only values for which keep returns true.
// Error and completion are forwarded unchanged.
func Filter[T any](keep func(T) bool) OperatorFunc[T, T] {
	return Operate(func(dst *Subscription[T]) Observer[T] {
		return Observer[T]{Next: func(v T) {
			if keep(v) {
				dst.Next(v)
			}
		}}
	})
}

// Tap runs fn for every value before forwarding it.
func Tap[T any](fn func(T)) OperatorFunc[T, T] {
	return Operate(func(dst *Subscription[T]) Observer[T] {
		return Observer[T]{Next: func(v T) {
			fn(v)
			dst.Next(v)
		}}
	})
}

// DistinctUntilChanged drops values equal (==) to the last delivered one.
func DistinctUntilChanged[T comparable]() OperatorFunc[T, T] {
	return DistinctUntilChangedFunc(func(a, b T) bool { return a == b })
}

// DistinctUntilChangedFunc drops values for which equal(last, v) is true.
// The first value is always delivered.
func DistinctUntilChangedFunc[T any](equal func(a, b T) bool) OperatorFunc[T, T] {
	return Operate(func(dst *Subscription[T]) Observer[T] {
		var (
			last T
			has  bool
		)
		return Observer[T]{Next: func(v T) {
			if has && equal(last, v) {
				return
			}
			last, has = v, true
			dst.Next(v)
		}}
	})
}

// Take forwards the first n values, then completes and unsubscribes upstream.
// Take(0) completes without ever subscribing to the source.
func Take[T any](n int) OperatorFunc[T, T] {
	if n <= 0 {
		return func(*Observable[T]) *Observable[T] { return Empty[T]() }
	}
	return Operate(func(dst *Subscription[T]) Observer[T] {
		seen := 0
		return Observer[T]{Next: func(v T) {
			// A downstream handler may push into the source before Complete
			// runs; the count is claimed first so those values are dropped.
			if seen >= n {
				return
			}
			seen++
			dst.Next(v)
			if seen == n {
				dst.Complete()
			}
		}}
	})
}

// Log traces every lifecycle event of the stream to logger at debug level.
// name identifies the stream in log records.
func Log[T any](logger *slog.Logger, name string) OperatorFunc[T, T] {
	return Operate(func(dst *Subscription[T]) Observer[T] {
		logger.Debug("stream subscribed", "stream", name)
		dst.Add(func() { logger.Debug("stream released", "stream", name) })
		return Observer[T]{
			Next: func(v T) {
				logger.Debug("stream next", "stream", name, "value", v)
				dst.Next(v)
			},
			Error: func(err error) {
				logger.Debug("stream error", "stream", name, "error", err)
				dst.Error(err)
			},
			Complete: func() {
				logger.Debug("stream complete", "stream", name)
				dst.Complete()
			},
		}
	})
}
