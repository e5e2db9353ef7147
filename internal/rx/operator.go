package rx

// OperatorFunc transforms one Observable into another without modifying it.
type OperatorFunc[T, R any] func(*Observable[T]) *Observable[R]

// Operate builds an operator from a function that wires the downstream
// subscription to an upstream Observer.
//
// fn is called once per subscription with the downstream sink dst. A nil
// Error or Complete in the returned Observer forwards to dst; returning an
// Observer with only Next set is the usual shape for per-value operators.
//
// The upstream subscription is created and registered as a teardown of dst
// before the upstream producer runs. Closing dst therefore closes upstream,
// including while a synchronous source is still emitting.
func Operate[T, R any](fn func(dst *Subscription[R]) Observer[T]) OperatorFunc[T, R] {
	return func(source *Observable[T]) *Observable[R] {
		return New(func(dst *Subscription[R]) Teardown {
			observer := fn(dst)
			if observer.Error == nil {
				observer.Error = dst.Error
			}
			if observer.Complete == nil {
				observer.Complete = dst.Complete
			}
			subscribeLinked(source, dst, observer)
			return nil
		})
	}
}

// subscribeLinked subscribes observer to source as a child of dst: closing
// dst unsubscribes the child.
func subscribeLinked[T, R any](source *Observable[T], dst *Subscription[R], observer Observer[T]) *Subscription[T] {
	child := newSubscription(observer)
	dst.Add(child.Unsubscribe)
	source.run(child)
	return child
}

// Pipe2 applies two operators left to right.
func Pipe2[A, B, C any](src *Observable[A], op1 OperatorFunc[A, B], op2 OperatorFunc[B, C]) *Observable[C] {
	return op2(op1(src))
}

// Pipe3 applies three operators left to right.
func Pipe3[A, B, C, D any](
	src *Observable[A],
	op1 OperatorFunc[A, B],
	op2 OperatorFunc[B, C],
	op3 OperatorFunc[C, D],
) *Observable[D] {
	return op3(op2(op1(src)))
}

// Pipe4 applies four operators left to right.
func Pipe4[A, B, C, D, E any](
	src *Observable[A],
	op1 OperatorFunc[A, B],
	op2 OperatorFunc[B, C],
	op3 OperatorFunc[C, D],
	op4 OperatorFunc[D, E],
) *Observable[E] {
	return op4(op3(op2(op1(src))))
}

// Pipe5 applies five operators left to right.
func Pipe5[A, B, C, D, E, F any](
	src *Observable[A],
	op1 OperatorFunc[A, B],
	op2 OperatorFunc[B, C],
	op3 OperatorFunc[C, D],
	op4 OperatorFunc[D, E],
	op5 OperatorFunc[E, F],
) *Observable[F] {
	return op5(op4(op3(op2(op1(src)))))
}
