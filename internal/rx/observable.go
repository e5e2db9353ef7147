package rx

// Producer is the subscribe function wrapped by an Observable.
//
// It is invoked synchronously, once per subscription, with the new
// Subscription as its sink. The returned Teardown (nil allowed) runs when the
// subscription closes. A panic inside the producer is delivered through the
// subscription's Error.
type Producer[T any] func(sub *Subscription[T]) Teardown

// Observable is a lazy, restartable producer of values.
//
// Observables are immutable: operators return new Observables and never
// modify the one they were given. An Observable holds no per-subscription
// state, so the same value can be subscribed any number of times.
type Observable[T any] struct {
	producer Producer[T]
}

// New creates an Observable from a producer function.
//
// Example:
//
//	ticks := rx.New(func(sub *rx.Subscription[int]) rx.Teardown {
//	    sub.Next(1)
//	    sub.Next(2)
//	    sub.Complete()
//	    return nil
//	})
func New[T any](producer Producer[T]) *Observable[T] {
	return &Observable[T]{producer: producer}
}

// Subscribe runs the producer for observer and returns the live Subscription.
//
// The producer runs before Subscribe returns, so a synchronous source may have
// delivered all of its events (and closed) by the time the caller gets the
// handle.
func (o *Observable[T]) Subscribe(observer Observer[T]) *Subscription[T] {
	sub := newSubscription(observer)
	o.run(sub)
	return sub
}

// SubscribeFunc subscribes with bare callbacks. Any argument may be nil.
func (o *Observable[T]) SubscribeFunc(next func(T), onError func(error), onComplete func()) *Subscription[T] {
	return o.Subscribe(Observer[T]{
		Next:     next,
		Error:    onError,
		Complete: onComplete,
	})
}

// AsObservable returns o. It lets Observable satisfy Source.
func (o *Observable[T]) AsObservable() *Observable[T] {
	return o
}

// Pipe applies same-typed operators left to right.
// Use Pipe2..Pipe5 for chains that change the element type.
func (o *Observable[T]) Pipe(ops ...OperatorFunc[T, T]) *Observable[T] {
	out := o
	for _, op := range ops {
		out = op(out)
	}
	return out
}

// run invokes the producer against an existing subscription.
//
// Splitting construction from execution lets operators link an upstream
// subscription to its downstream before the upstream producer starts.
func (o *Observable[T]) run(sub *Subscription[T]) {
	if sub.Closed() {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			if mustUnwind(r) {
				panic(r)
			}
			sub.Error(errorFromPanic(r))
		}
	}()
	sub.Add(o.producer(sub))
}

// Source is the capability marker for anything that can present itself as
// an Observable. Subjects and Observable itself implement it.
type Source[T any] interface {
	AsObservable() *Observable[T]
}
