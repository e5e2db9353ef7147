package rx_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rxflow/internal/marble"
	"github.com/roach88/rxflow/internal/rx"
	"github.com/roach88/rxflow/internal/testutil"
)

var ticks = map[string]int{"0": 0, "1": 1, "2": 2, "3": 3}

func TestDebounceTime_EmitsAfterQuietPeriod(t *testing.T) {
	s := testutil.NewVirtualScheduler()
	src := marble.Cold(s, "-a---bc----d--|", map[string]string(nil))

	debounced := rx.DebounceTime[string](s.Frames(2), rx.WithScheduler(s))(src.Observable)
	marble.Expect(t, s, debounced, "---a----c----d|", nil)
}

func TestDebounceTime_CompleteFlushesPending(t *testing.T) {
	s := testutil.NewVirtualScheduler()
	src := marble.Cold(s, "-ab|", map[string]string(nil))

	debounced := rx.DebounceTime[string](s.Frames(5), rx.WithScheduler(s))(src.Observable)
	marble.Expect(t, s, debounced, "---(b|)", nil)
	assert.Equal(t, 0, s.Pending())
}

func TestDebounceTime_ErrorDropsPending(t *testing.T) {
	s := testutil.NewVirtualScheduler()
	src := marble.Cold(s, "-a#", map[string]string(nil))

	debounced := rx.DebounceTime[string](s.Frames(5), rx.WithScheduler(s))(src.Observable)
	marble.Expect(t, s, debounced, "--#", nil)
	assert.Equal(t, 0, s.Pending())
}

func TestDebounceTime_UnsubscribeCancelsTimer(t *testing.T) {
	s := testutil.NewVirtualScheduler()
	src := marble.Cold(s, "-a------|", map[string]string(nil))

	debounced := rx.DebounceTime[string](s.Frames(5), rx.WithScheduler(s))(src.Observable)
	marble.Expect(t, s, debounced, "", nil, marble.UnsubscribeAt(3))
	assert.Equal(t, 0, s.Pending())
}

func TestTimer_EmitsOnceThenCompletes(t *testing.T) {
	s := testutil.NewVirtualScheduler()
	marble.Expect(t, s, rx.Timer(s.Frames(3), rx.WithScheduler(s)), "---(0|)", ticks)
}

func TestInterval_TicksUntilTaken(t *testing.T) {
	s := testutil.NewVirtualScheduler()
	marble.Expect(t, s, rx.Take[int](3)(rx.Interval(s.Frames(2), rx.WithScheduler(s))), "--0-1-(2|)", ticks)
	assert.Equal(t, 0, s.Pending(), "no tick is rescheduled after release")
}

func TestInterval_UnsubscribeStopsTicks(t *testing.T) {
	s := testutil.NewVirtualScheduler()
	marble.Expect(t, s, rx.Interval(s.Frames(2), rx.WithScheduler(s)), "--0-1", ticks, marble.UnsubscribeAt(5))
	assert.Equal(t, 0, s.Pending())
}

func TestTimerScheduler_WallClock(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	values, err := rx.ToSlice(ctx, rx.Timer(time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, []int{0}, values)
}

func TestTimerScheduler_CancelStopsTask(t *testing.T) {
	ran := make(chan struct{}, 1)
	cancelTask := rx.TimerScheduler{}.Schedule(20*time.Millisecond, func() { ran <- struct{}{} })
	cancelTask()

	select {
	case <-ran:
		t.Fatal("cancelled task ran")
	case <-time.After(60 * time.Millisecond):
	}
}

func TestDefaultScheduler_IsWallClock(t *testing.T) {
	assert.Equal(t, rx.Scheduler(rx.TimerScheduler{}), rx.DefaultScheduler)
}

func TestDebounceTime_WallClock(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	values, err := rx.ToSlice(ctx, rx.DebounceTime[int](time.Millisecond)(rx.Of(1, 2, 3)))
	require.NoError(t, err)
	assert.Equal(t, []int{3}, values, "completion flushes the last value")

	_, err = rx.ToSlice(ctx, rx.DebounceTime[int](time.Millisecond)(rx.ThrowError[int](errors.New("boom"))))
	assert.EqualError(t, err, "boom")
}
