package rx_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rxflow/internal/rx"
)

func TestSubscription_UnsubscribeIsIdempotent(t *testing.T) {
	sources := map[string]func(teardown func()) *rx.Observable[int]{
		"producer": func(teardown func()) *rx.Observable[int] {
			return rx.New(func(*rx.Subscription[int]) rx.Teardown { return teardown })
		},
		"mapped": func(teardown func()) *rx.Observable[int] {
			src := rx.New(func(*rx.Subscription[int]) rx.Teardown { return teardown })
			return rx.Map(func(v int) int { return v })(src)
		},
		"merged": func(teardown func()) *rx.Observable[int] {
			src := rx.New(func(*rx.Subscription[int]) rx.Teardown { return teardown })
			return rx.Merge(src, rx.Never[int]())
		},
		"switched": func(teardown func()) *rx.Observable[int] {
			inner := rx.New(func(*rx.Subscription[int]) rx.Teardown { return teardown })
			return rx.SwitchMap(func(int) *rx.Observable[int] { return inner })(rx.Of(1))
		},
	}

	for name, build := range sources {
		t.Run(name, func(t *testing.T) {
			calls := 0
			sub := build(func() { calls++ }).Subscribe(rx.Observer[int]{})

			sub.Unsubscribe()
			sub.Unsubscribe()

			assert.Equal(t, 1, calls)
			assert.True(t, sub.Closed())
		})
	}
}

func TestSubscription_TeardownRunsOnceAfterComplete(t *testing.T) {
	calls := 0
	sub := rx.New(func(sub *rx.Subscription[int]) rx.Teardown {
		sub.Next(1)
		sub.Complete()
		return func() { calls++ }
	}).Subscribe(rx.Observer[int]{})

	sub.Unsubscribe()
	assert.Equal(t, 1, calls)
}

func TestSubscription_NoEventsAfterTerminal(t *testing.T) {
	r := record(rx.New(func(sub *rx.Subscription[int]) rx.Teardown {
		sub.Next(1)
		sub.Complete()
		sub.Next(2)
		sub.Error(errors.New("late"))
		sub.Complete()
		return nil
	}))

	assert.Equal(t, []int{1}, r.values)
	assert.True(t, r.completed)
	assert.NoError(t, r.err)
}

func TestSubscription_AddAfterReleaseRunsImmediately(t *testing.T) {
	sub := rx.Never[int]().Subscribe(rx.Observer[int]{})
	sub.Unsubscribe()

	ran := false
	sub.Add(func() { ran = true })
	assert.True(t, ran)
}

func TestSubscription_AddNilIgnored(t *testing.T) {
	sub := rx.Never[int]().Subscribe(rx.Observer[int]{})
	assert.NotPanics(t, func() {
		sub.Add(nil)
		sub.Unsubscribe()
	})
}

func TestSubscription_TeardownsRunInRegistrationOrder(t *testing.T) {
	var order []int
	sub := rx.Never[int]().Subscribe(rx.Observer[int]{})
	sub.Add(func() { order = append(order, 1) })
	sub.Add(func() { order = append(order, 2) })
	sub.Unsubscribe()

	assert.Equal(t, []int{1, 2}, order)
}

func TestSubscription_UnsubscribeFromNextHandler(t *testing.T) {
	subject := rx.NewSubject[int]()
	var got []int
	var sub *rx.Subscription[int]
	sub = subject.SubscribeFunc(func(v int) {
		got = append(got, v)
		sub.Unsubscribe()
	}, nil, nil)

	subject.Next(1)
	subject.Next(2)

	assert.Equal(t, []int{1}, got)
	assert.Equal(t, 0, subject.Observers())
}

func TestSubscription_NextPanicBecomesError(t *testing.T) {
	r := &recording[int]{}
	rx.Of(1, 2, 3).Subscribe(rx.Observer[int]{
		Next: func(v int) {
			if v == 2 {
				panic("bad value")
			}
			r.values = append(r.values, v)
		},
		Error: func(err error) { r.err = err },
	})

	assert.Equal(t, []int{1}, r.values)
	require.Error(t, r.err)
	assert.True(t, rx.IsPanicError(r.err))

	var re *rx.RuntimeError
	require.True(t, errors.As(r.err, &re))
	assert.Equal(t, rx.ErrCodePanic, re.Code)
	assert.Equal(t, "bad value", re.Value)
}

func TestSubscription_ErrorPanicValuePassesThrough(t *testing.T) {
	boom := errors.New("boom")
	r := record(rx.New(func(*rx.Subscription[int]) rx.Teardown {
		panic(boom)
	}))

	assert.Same(t, boom, r.err)
	assert.False(t, rx.IsPanicError(r.err))
}

func TestSubscription_ProducerPanicBecomesError(t *testing.T) {
	r := record(rx.New(func(*rx.Subscription[int]) rx.Teardown {
		panic("producer failed")
	}))

	assert.True(t, rx.IsPanicError(r.err))
	assert.False(t, r.completed)
}

func TestSubscription_UnhandledErrorPanics(t *testing.T) {
	boom := errors.New("boom")
	released := 0
	src := rx.New(func(sub *rx.Subscription[int]) rx.Teardown {
		sub.Add(func() { released++ })
		sub.Error(boom)
		return nil
	})

	recovered := catchPanic(func() {
		src.SubscribeFunc(func(int) {}, nil, nil)
	})

	err, ok := recovered.(error)
	require.True(t, ok, "panic value should be an error, got %T", recovered)
	assert.True(t, rx.IsUnhandledError(err))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, released, "teardown must run before the panic escapes")
}

func TestSubscription_UnhandledErrorEscapesOperators(t *testing.T) {
	boom := errors.New("boom")
	chain := rx.Pipe3(
		rx.ThrowError[int](boom),
		rx.Map(func(v int) int { return v + 1 }),
		rx.Filter(func(int) bool { return true }),
		rx.SwitchMap(func(v int) *rx.Observable[int] { return rx.Of(v) }),
	)

	recovered := catchPanic(func() { chain.Subscribe(rx.Observer[int]{}) })

	err, ok := recovered.(error)
	require.True(t, ok)
	assert.True(t, rx.IsUnhandledError(err))
	assert.ErrorIs(t, err, boom)
}

func TestSubscription_UnhandledErrorFromNextHandlerIsNotSwallowed(t *testing.T) {
	boom := errors.New("boom")
	inner := rx.NewSubject[int]()
	inner.SubscribeFunc(nil, nil, nil)

	outer := rx.Of(1)
	recovered := catchPanic(func() {
		outer.SubscribeFunc(func(int) { inner.Error(boom) }, func(error) {}, nil)
	})

	err, ok := recovered.(error)
	require.True(t, ok)
	assert.True(t, rx.IsUnhandledError(err))
}

func catchPanic(fn func()) (recovered any) {
	defer func() { recovered = recover() }()
	fn()
	return nil
}

func TestSubscription_CompleteHandlerPanicEscapes(t *testing.T) {
	var subscribes, teardowns int
	src := rx.Merge(counted(&subscribes, &teardowns), rx.Of(1, 2))

	recovered := catchPanic(func() {
		rx.Take[int](1)(src).Subscribe(rx.Observer[int]{
			Complete: func() { panic("complete failed") },
		})
	})

	err, ok := recovered.(error)
	require.True(t, ok, "panic value should be an error, got %v", recovered)
	assert.True(t, rx.IsHandlerPanic(err))
	var re *rx.RuntimeError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "complete failed", re.Value)
	assert.Equal(t, 1, teardowns)
}

func TestSubscription_ErrorHandlerPanicEscapes(t *testing.T) {
	boom := errors.New("boom")
	handlerErr := errors.New("handler failed")

	recovered := catchPanic(func() {
		rx.Map(func(v int) int { return v })(rx.ThrowError[int](boom)).Subscribe(rx.Observer[int]{
			Error: func(error) { panic(handlerErr) },
		})
	})

	err, ok := recovered.(error)
	require.True(t, ok)
	assert.True(t, rx.IsHandlerPanic(err))
	assert.ErrorIs(t, err, handlerErr)
	assert.False(t, rx.IsUnhandledError(err))
}
