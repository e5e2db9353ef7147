package marble

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rxflow/internal/rx"
	"github.com/roach88/rxflow/internal/testutil"
)

// DefaultMaxFrames bounds a recording when no MaxFrames option is given, so
// sources that never terminate still return.
const DefaultMaxFrames = 750

// RecordOption configures Record.
type RecordOption func(*recordConfig)

type recordConfig struct {
	unsubscribeAt int
	maxFrames     int
}

// UnsubscribeAt releases the recording subscription on the given frame.
func UnsubscribeAt(frame int) RecordOption {
	return func(c *recordConfig) {
		c.unsubscribeAt = frame
	}
}

// MaxFrames bounds how many frames past the subscription Record runs.
//
// Default: DefaultMaxFrames.
func MaxFrames(n int) RecordOption {
	return func(c *recordConfig) {
		c.maxFrames = n
	}
}

// Record subscribes to obs on the current frame, runs s for up to the frame
// limit, and returns every event delivered, stamped with its frame.
// UnsubscribeAt frames are absolute; the subscription is otherwise left open.
func Record[T any](s *testutil.VirtualScheduler, obs *rx.Observable[T], opts ...RecordOption) []Event[T] {
	cfg := recordConfig{unsubscribeAt: -1, maxFrames: DefaultMaxFrames}
	for _, opt := range opts {
		opt(&cfg)
	}

	var mu sync.Mutex
	events := []Event[T]{}
	add := func(n rx.Notification[T]) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, Event[T]{Frame: s.Frame(), Notification: n})
	}

	sub := obs.Subscribe(rx.Observer[T]{
		Next:     func(v T) { add(rx.NextOf(v)) },
		Error:    func(err error) { add(rx.ErrorOf[T](err)) },
		Complete: func() { add(rx.CompleteOf[T]()) },
	})
	if cfg.unsubscribeAt >= 0 {
		s.Schedule(s.Frames(cfg.unsubscribeAt)-s.Now(), sub.Unsubscribe)
	}
	s.RunUntil(s.Now() + s.Frames(cfg.maxFrames))

	mu.Lock()
	defer mu.Unlock()
	return events
}

// Expect records obs and asserts that it produced exactly the events of
// diagram. Tokens resolve through values (see Resolve). The recorded events
// are returned for further checks.
func Expect[T any](t testing.TB, s *testutil.VirtualScheduler, obs *rx.Observable[T], diagram string, values map[string]T, opts ...RecordOption) []Event[T] {
	t.Helper()
	parsed, err := Parse(diagram)
	require.NoError(t, err)
	want, err := Resolve(parsed, values, nil)
	require.NoError(t, err)

	got := Record(s, obs, opts...)
	assert.Equal(t, want, got, "marble mismatch\nwant: %s\ngot:  %s", sprintDiagram(want), sprintDiagram(got))
	return got
}

// ExpectEvents asserts that got matches want event for event.
func ExpectEvents[T any](t testing.TB, want, got []Event[T]) {
	t.Helper()
	assert.Equal(t, want, got, "marble mismatch\nwant: %s\ngot:  %s", sprintDiagram(want), sprintDiagram(got))
}

// ExpectSubscriptions asserts that logs match the subscription diagrams, in
// order.
func ExpectSubscriptions(t testing.TB, logs []SubscriptionLog, diagrams ...string) {
	t.Helper()
	want := make([]SubscriptionLog, 0, len(diagrams))
	for _, d := range diagrams {
		log, err := ParseSubscription(d)
		require.NoError(t, err)
		want = append(want, log)
	}
	assert.Equal(t, want, logs, "subscription mismatch\nwant: %v\ngot:  %v", want, logs)
}

func sprintDiagram[T any](events []Event[T]) string {
	return Render(events, func(v T) string { return fmt.Sprint(v) })
}
