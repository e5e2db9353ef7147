package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestVirtualScheduler_RunsInDueOrder(t *testing.T) {
	s := NewVirtualScheduler()
	var order []string

	s.Schedule(3*time.Millisecond, func() { order = append(order, "c") })
	s.Schedule(1*time.Millisecond, func() { order = append(order, "a") })
	s.Schedule(2*time.Millisecond, func() { order = append(order, "b") })

	assert.Equal(t, 3, s.Run())
	assert.Equal(t, []string{"a", "b", "c"}, order)
	assert.Equal(t, 3*time.Millisecond, s.Now())
}

func TestVirtualScheduler_SameDueRunsFIFO(t *testing.T) {
	s := NewVirtualScheduler()
	var order []int

	for i := range 5 {
		s.Schedule(time.Millisecond, func() { order = append(order, i) })
	}
	s.Run()

	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestVirtualScheduler_NeverRunsSynchronously(t *testing.T) {
	s := NewVirtualScheduler()
	ran := false

	s.Schedule(0, func() { ran = true })
	assert.False(t, ran)
	assert.Equal(t, 1, s.Pending())

	s.Run()
	assert.True(t, ran)
}

func TestVirtualScheduler_Cancel(t *testing.T) {
	s := NewVirtualScheduler()
	ran := false

	cancel := s.Schedule(time.Millisecond, func() { ran = true })
	cancel()
	cancel() // idempotent

	assert.Equal(t, 0, s.Pending())
	assert.Equal(t, 0, s.Run())
	assert.False(t, ran)
}

func TestVirtualScheduler_TaskSeesItsDueTime(t *testing.T) {
	s := NewVirtualScheduler()
	var at []int

	s.Schedule(4*time.Millisecond, func() {
		at = append(at, s.Frame())
		// Scheduled from inside a task: relative to the task's due time.
		s.Schedule(2*time.Millisecond, func() { at = append(at, s.Frame()) })
	})
	s.Run()

	assert.Equal(t, []int{4, 6}, at)
}

func TestVirtualScheduler_RunUntil(t *testing.T) {
	s := NewVirtualScheduler()
	var ran []int

	for _, f := range []int{1, 5, 10} {
		s.Schedule(s.Frames(f), func() { ran = append(ran, f) })
	}

	assert.Equal(t, 2, s.RunUntil(s.Frames(5)))
	assert.Equal(t, []int{1, 5}, ran)
	assert.Equal(t, 5, s.Frame())
	assert.Equal(t, 1, s.Pending())

	// Moves the clock even when nothing is due
	assert.Equal(t, 0, s.RunUntil(s.Frames(8)))
	assert.Equal(t, 8, s.Frame())
}

func TestVirtualScheduler_AdvanceBy(t *testing.T) {
	s := NewVirtualScheduler()
	count := 0
	var tick func()
	tick = func() {
		count++
		s.Schedule(s.Frames(2), tick)
	}
	s.Schedule(s.Frames(2), tick)

	s.AdvanceBy(s.Frames(10))
	assert.Equal(t, 5, count)
	assert.Equal(t, 10, s.Frame())
}

func TestVirtualScheduler_NegativeDelayIsZero(t *testing.T) {
	s := NewVirtualScheduler()
	s.RunUntil(s.Frames(3))

	var at int
	s.Schedule(-time.Second, func() { at = s.Frame() })
	s.Run()

	assert.Equal(t, 3, at)
}

func TestVirtualScheduler_WithFrame(t *testing.T) {
	s := NewVirtualScheduler(WithFrame(10 * time.Millisecond))

	assert.Equal(t, 10*time.Millisecond, s.FrameDuration())
	assert.Equal(t, 30*time.Millisecond, s.Frames(3))

	s.Schedule(25*time.Millisecond, func() {})
	s.Run()
	assert.Equal(t, 2, s.Frame())
}

func TestVirtualScheduler_Reset(t *testing.T) {
	s := NewVirtualScheduler()
	s.Schedule(time.Millisecond, func() {})
	s.RunUntil(s.Frames(5))
	s.Schedule(time.Millisecond, func() {})

	s.Reset()
	assert.Equal(t, 0, s.Pending())
	assert.Equal(t, 0, s.Frame())
}
