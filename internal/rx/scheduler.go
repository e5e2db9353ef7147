package rx

import (
	"sync"
	"time"
)

// Scheduler runs deferred work for time-based operators.
//
// Schedule arranges for task to run once after delay and returns a function
// that cancels it. Cancelling a task that already ran is a no-op. Schedule
// must not run task synchronously.
//
// TimerScheduler is the wall-clock implementation; tests use
// testutil.VirtualScheduler for deterministic virtual time.
type Scheduler interface {
	Schedule(delay time.Duration, task func()) (cancel func())
}

// TimerScheduler schedules tasks on time.AfterFunc goroutines.
type TimerScheduler struct{}

// Schedule implements Scheduler.
func (TimerScheduler) Schedule(delay time.Duration, task func()) func() {
	t := time.AfterFunc(delay, task)
	return func() { t.Stop() }
}

// DefaultScheduler is used by time-based operators without WithScheduler.
var DefaultScheduler Scheduler = TimerScheduler{}

// Option configures time-based operators and constructors.
type Option func(*options)

type options struct {
	scheduler Scheduler
}

// WithScheduler selects the Scheduler used for deferred delivery.
//
// Default: DefaultScheduler (wall clock).
func WithScheduler(s Scheduler) Option {
	return func(o *options) {
		o.scheduler = s
	}
}

func buildOptions(opts []Option) options {
	o := options{scheduler: DefaultScheduler}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// debounceState is the per-subscription state of DebounceTime.
type debounceState[T any] struct {
	dst       *Subscription[T]
	due       time.Duration
	scheduler Scheduler

	mu      sync.Mutex
	pending T
	has     bool
	cancel  func()
	gen     uint64 // invalidates timers that fire after being replaced
}

// DebounceTime delivers a value only after due has passed without another
// value arriving. Each value cancels the pending delivery and reschedules.
//
// Completion flushes the pending value synchronously, then completes.
// An error drops the pending value and is forwarded immediately.
func DebounceTime[T any](due time.Duration, opts ...Option) OperatorFunc[T, T] {
	o := buildOptions(opts)
	return Operate(func(dst *Subscription[T]) Observer[T] {
		st := &debounceState[T]{dst: dst, due: due, scheduler: o.scheduler}
		dst.Add(st.discard)
		return Observer[T]{
			Next:     st.next,
			Error:    st.error,
			Complete: st.complete,
		}
	})
}

func (s *debounceState[T]) next(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	s.pending, s.has = v, true
	s.gen++
	gen := s.gen
	s.cancel = s.scheduler.Schedule(s.due, func() { s.fire(gen) })
}

func (s *debounceState[T]) fire(gen uint64) {
	s.mu.Lock()
	if gen != s.gen || !s.has {
		s.mu.Unlock()
		return
	}
	v := s.take()
	s.mu.Unlock()
	s.dst.Next(v)
}

func (s *debounceState[T]) complete() {
	s.mu.Lock()
	has := s.has
	v := s.take()
	s.mu.Unlock()
	if has {
		s.dst.Next(v)
	}
	s.dst.Complete()
}

func (s *debounceState[T]) error(err error) {
	s.discard()
	s.dst.Error(err)
}

func (s *debounceState[T]) discard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.take()
}

// take clears the pending slot and cancels its timer. Caller holds mu.
func (s *debounceState[T]) take() T {
	v := s.pending
	var zero T
	s.pending, s.has = zero, false
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.gen++
	return v
}

// Timer emits 0 once after delay, then completes.
func Timer(delay time.Duration, opts ...Option) *Observable[int] {
	o := buildOptions(opts)
	return New(func(sub *Subscription[int]) Teardown {
		return o.scheduler.Schedule(delay, func() {
			sub.Next(0)
			sub.Complete()
		})
	})
}

// Interval emits 0, 1, 2, ... every period until unsubscribed.
func Interval(period time.Duration, opts ...Option) *Observable[int] {
	o := buildOptions(opts)
	return New(func(sub *Subscription[int]) Teardown {
		var (
			mu     sync.Mutex
			n      int
			cancel func()
			tick   func()
		)
		tick = func() {
			mu.Lock()
			v := n
			n++
			mu.Unlock()
			sub.Next(v)
			mu.Lock()
			defer mu.Unlock()
			if sub.Closed() {
				return
			}
			cancel = o.scheduler.Schedule(period, tick)
		}
		mu.Lock()
		cancel = o.scheduler.Schedule(period, tick)
		mu.Unlock()
		return func() {
			mu.Lock()
			defer mu.Unlock()
			cancel()
		}
	})
}
