package testutil

import (
	"slices"
	"sync"
	"time"
)

// DefaultFrame is the virtual duration of one marble frame.
const DefaultFrame = time.Millisecond

// VirtualScheduler runs scheduled tasks in virtual time.
//
// Tasks are ordered by due time; tasks due at the same instant run in the
// order they were scheduled. Running a task advances the VirtualClock to its
// due time, so nothing ever waits on the wall clock and every run of the same
// scenario yields the same interleaving.
//
// VirtualScheduler satisfies rx.Scheduler.
//
// Thread-safety: Schedule and cancellation are safe from any goroutine.
// Run, RunUntil and AdvanceBy must be driven from one goroutine; tasks run on
// that goroutine without the scheduler lock held, so they may schedule more
// work.
type VirtualScheduler struct {
	clock *VirtualClock
	frame time.Duration

	mu    sync.Mutex
	tasks []*virtualTask // sorted by (due, seq)
	seq   uint64
}

type virtualTask struct {
	due       time.Duration
	seq       uint64
	run       func()
	cancelled bool
}

// SchedulerOption configures a VirtualScheduler.
type SchedulerOption func(*VirtualScheduler)

// WithFrame sets the virtual duration of one frame.
//
// Default: DefaultFrame (1ms).
func WithFrame(frame time.Duration) SchedulerOption {
	return func(s *VirtualScheduler) {
		if frame > 0 {
			s.frame = frame
		}
	}
}

// NewVirtualScheduler creates a scheduler at virtual time zero.
func NewVirtualScheduler(opts ...SchedulerOption) *VirtualScheduler {
	s := &VirtualScheduler{
		clock: NewVirtualClock(),
		frame: DefaultFrame,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Schedule queues task to run delay after the current virtual time.
// Negative delays are treated as zero. The task never runs synchronously.
func (s *VirtualScheduler) Schedule(delay time.Duration, task func()) func() {
	if delay < 0 {
		delay = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	t := &virtualTask{due: s.clock.Now() + delay, seq: s.seq, run: task}
	i, _ := slices.BinarySearchFunc(s.tasks, t.due, func(e *virtualTask, due time.Duration) int {
		if e.due <= due {
			return -1
		}
		return 1
	})
	s.tasks = slices.Insert(s.tasks, i, t)

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		t.cancelled = true
	}
}

// Now returns the current virtual time.
func (s *VirtualScheduler) Now() time.Duration {
	return s.clock.Now()
}

// Frame returns the current virtual time in frames.
func (s *VirtualScheduler) Frame() int {
	return int(s.clock.Now() / s.frame)
}

// FrameDuration returns the virtual duration of one frame.
func (s *VirtualScheduler) FrameDuration() time.Duration {
	return s.frame
}

// Frames converts a frame count into a virtual duration.
func (s *VirtualScheduler) Frames(n int) time.Duration {
	return time.Duration(n) * s.frame
}

// Pending returns the number of queued, uncancelled tasks.
func (s *VirtualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.tasks {
		if !t.cancelled {
			n++
		}
	}
	return n
}

// Run executes tasks until the queue is empty and returns how many ran.
// The clock stops at the due time of the last task.
//
// A source that reschedules forever (rx.Interval) never drains; bound such
// runs with RunUntil.
func (s *VirtualScheduler) Run() int {
	n := 0
	for s.step(-1) {
		n++
	}
	return n
}

// RunUntil executes every task due at or before limit, then moves the clock
// to limit. Returns how many tasks ran.
func (s *VirtualScheduler) RunUntil(limit time.Duration) int {
	n := 0
	for s.step(limit) {
		n++
	}
	if s.clock.Now() < limit {
		_ = s.clock.AdvanceTo(limit)
	}
	return n
}

// AdvanceBy runs everything due within d of the current time.
func (s *VirtualScheduler) AdvanceBy(d time.Duration) int {
	return s.RunUntil(s.clock.Now() + d)
}

// Reset drops queued tasks and returns the clock to zero.
func (s *VirtualScheduler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = nil
	s.seq = 0
	s.clock.Reset()
}

// step runs the next live task due at or before limit (limit < 0: no bound).
func (s *VirtualScheduler) step(limit time.Duration) bool {
	s.mu.Lock()
	var next *virtualTask
	for len(s.tasks) > 0 {
		t := s.tasks[0]
		if t.cancelled {
			s.tasks[0] = nil
			s.tasks = s.tasks[1:]
			continue
		}
		if limit >= 0 && t.due > limit {
			break
		}
		s.tasks[0] = nil
		s.tasks = s.tasks[1:]
		next = t
		break
	}
	s.mu.Unlock()

	if next == nil {
		return false
	}
	_ = s.clock.AdvanceTo(next.due)
	next.run()
	return true
}
