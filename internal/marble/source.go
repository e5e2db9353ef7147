package marble

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/roach88/rxflow/internal/rx"
	"github.com/roach88/rxflow/internal/testutil"
)

// SourceOption configures Cold and Hot sources.
type SourceOption func(*sourceConfig)

type sourceConfig struct {
	err error
}

// WithError sets the error delivered for '#'.
//
// Default: DefaultError.
func WithError(err error) SourceOption {
	return func(c *sourceConfig) {
		c.err = err
	}
}

// subscriptionLogger keeps the subscription history of a test source.
type subscriptionLogger struct {
	mu   sync.Mutex
	logs []SubscriptionLog
}

func (l *subscriptionLogger) subscribed(frame int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logs = append(l.logs, SubscriptionLog{Subscribed: frame, Unsubscribed: Unsubscribed})
	return len(l.logs) - 1
}

func (l *subscriptionLogger) unsubscribed(i, frame int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logs[i].Unsubscribed = frame
}

// Subscriptions returns every subscription made so far, in order.
func (l *subscriptionLogger) Subscriptions() []SubscriptionLog {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.logs)
}

// ColdObservable replays its diagram from the start for every subscriber,
// with frames counted from the moment of subscription.
type ColdObservable[T any] struct {
	*rx.Observable[T]
	subscriptionLogger
}

// Cold creates a cold source on s. It panics if the diagram is malformed,
// contains '^', or uses a token with no value.
func Cold[T any](s *testutil.VirtualScheduler, diagram string, values map[string]T, opts ...SourceOption) *ColdObservable[T] {
	if strings.ContainsRune(diagram, '^') {
		panic(fmt.Errorf("%w: cold diagram %q has a subscription point", ErrInvalidMarble, diagram))
	}
	events := mustResolve(diagram, values, opts)

	c := &ColdObservable[T]{}
	c.Observable = rx.New(func(sub *rx.Subscription[T]) rx.Teardown {
		idx := c.subscribed(s.Frame())
		cancels := make([]func(), 0, len(events))
		for _, e := range events {
			cancels = append(cancels, s.Schedule(s.Frames(e.Frame), func() {
				e.Notification.Deliver(sub)
			}))
		}
		return func() {
			for _, cancel := range cancels {
				cancel()
			}
			c.unsubscribed(idx, s.Frame())
		}
	})
	return c
}

// HotObservable emits its diagram once, on the scheduler's timeline,
// whether or not anyone is subscribed. Subscribers only see events from the
// frame they subscribe on.
type HotObservable[T any] struct {
	*rx.Observable[T]
	subscriptionLogger
}

// Hot creates a hot source on s. Frames are relative to '^' when present,
// and events before it are dropped. It panics if the diagram is malformed or
// uses a token with no value.
func Hot[T any](s *testutil.VirtualScheduler, diagram string, values map[string]T, opts ...SourceOption) *HotObservable[T] {
	events := mustResolve(diagram, values, opts)
	subject := rx.NewSubject[T]()
	for _, e := range events {
		if e.Frame < 0 {
			continue
		}
		s.Schedule(s.Frames(e.Frame), func() {
			switch n := e.Notification; n.Kind {
			case rx.KindNext:
				subject.Next(n.Value)
			case rx.KindError:
				subject.Error(n.Err)
			case rx.KindComplete:
				subject.Complete()
			}
		})
	}

	h := &HotObservable[T]{}
	h.Observable = rx.New(func(sub *rx.Subscription[T]) rx.Teardown {
		idx := h.subscribed(s.Frame())
		inner := subject.Subscribe(rx.Observer[T]{
			Next:     sub.Next,
			Error:    sub.Error,
			Complete: sub.Complete,
		})
		return func() {
			inner.Unsubscribe()
			h.unsubscribed(idx, s.Frame())
		}
	})
	return h
}

func mustResolve[T any](diagram string, values map[string]T, opts []SourceOption) []Event[T] {
	var cfg sourceConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	parsed, err := Parse(diagram)
	if err != nil {
		panic(err)
	}
	events, err := Resolve(parsed, values, cfg.err)
	if err != nil {
		panic(err)
	}
	return events
}
