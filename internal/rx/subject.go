package rx

import (
	"sync"

	list "github.com/bahlo/generic-list-go"
)

// hub is the multicast core shared by every subject type.
//
// hub.mu guards the subscriber list, the terminal state and whatever the
// retain/replay hooks touch. It is never held while observer code runs.
type hub[T any] struct {
	mu      sync.Mutex
	entries []*hubEntry[T] // registration order
	nextID  uint64
	stopped bool
	err     error // terminal error; nil after Complete

	// retain records a value before it is broadcast. Called under mu.
	retain func(T)
	// replay returns the values a new subscriber receives before joining.
	// Called under mu.
	replay func() []T
	// replayStopped makes late subscribers receive replay values before the
	// terminal event. When false they only get the terminal event.
	replayStopped bool
}

type hubEntry[T any] struct {
	id  uint64
	sub *Subscription[T]

	// While replaying, events broadcast to this entry are queued here and
	// delivered by the subscribing goroutine once the replay values are out.
	replaying bool
	pending   []T
	stopped   bool
	err       error
}

// subscribe is the producer of every subject.
//
// The subscriber joins the live list in the same critical section that reads
// its replay values, so no value broadcast after that point is lost. Until
// the replay values are delivered, live events for it are queued and then
// delivered in order, including values pushed by its own handlers.
func (h *hub[T]) subscribe(sub *Subscription[T]) Teardown {
	h.mu.Lock()
	stopped, err := h.stopped, h.err
	var replay []T
	if h.replay != nil && (!stopped || h.replayStopped) {
		replay = h.replay()
	}
	if stopped {
		h.mu.Unlock()
		deliver(sub, replay)
		terminate(sub, err)
		return nil
	}
	e := &hubEntry[T]{id: h.nextID, sub: sub, replaying: true}
	h.nextID++
	h.entries = append(h.entries, e)
	h.mu.Unlock()

	deliver(sub, replay)
	for {
		h.mu.Lock()
		if len(e.pending) == 0 {
			e.replaying = false
			stopped, err := e.stopped, e.err
			h.mu.Unlock()
			if stopped {
				terminate(sub, err)
			}
			break
		}
		batch := e.pending
		e.pending = nil
		h.mu.Unlock()
		deliver(sub, batch)
	}

	return func() { h.remove(e.id) }
}

func deliver[T any](sub *Subscription[T], values []T) {
	for _, v := range values {
		if sub.Closed() {
			return
		}
		sub.Next(v)
	}
}

func (h *hub[T]) remove(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, e := range h.entries {
		if e.id == id {
			h.entries = append(h.entries[:i:i], h.entries[i+1:]...)
			return
		}
	}
}

// route returns the live subscribers that receive an event directly.
// Replaying entries are skipped after queue is called on them. Caller holds mu.
func (h *hub[T]) route(queue func(*hubEntry[T])) []*Subscription[T] {
	subs := make([]*Subscription[T], 0, len(h.entries))
	for _, e := range h.entries {
		if e.replaying {
			queue(e)
			continue
		}
		subs = append(subs, e.sub)
	}
	return subs
}

func (h *hub[T]) next(v T) {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	if h.retain != nil {
		h.retain(v)
	}
	subs := h.route(func(e *hubEntry[T]) { e.pending = append(e.pending, v) })
	h.mu.Unlock()

	for _, sub := range subs {
		sub.Next(v)
	}
}

func (h *hub[T]) stop(err error) {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	h.stopped = true
	h.err = err
	subs := h.route(func(e *hubEntry[T]) { e.stopped, e.err = true, err })
	h.entries = nil
	h.mu.Unlock()

	for _, sub := range subs {
		terminate(sub, err)
	}
}

func (h *hub[T]) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// terminate delivers Error when err is non-nil, Complete otherwise.
func terminate[T any](sub *Subscription[T], err error) {
	if err != nil {
		sub.Error(err)
		return
	}
	sub.Complete()
}

// Subject is an Observable that is also a multicast sink.
//
// Next, Error and Complete broadcast to the subscribers registered at the
// moment of the call, in registration order. A subscriber added by another
// subscriber's handler mid-broadcast does not see the in-flight event.
//
// After Error or Complete the subject is stopped: Next is ignored and late
// subscribers receive the terminal event immediately.
//
// Thread-safety: all methods are safe for concurrent use.
type Subject[T any] struct {
	*Observable[T]
	h *hub[T]
}

// NewSubject creates a Subject with no subscribers.
func NewSubject[T any]() *Subject[T] {
	return newSubject(&hub[T]{})
}

func newSubject[T any](h *hub[T]) *Subject[T] {
	return &Subject[T]{Observable: New(h.subscribe), h: h}
}

// Next broadcasts a value.
func (s *Subject[T]) Next(value T) {
	s.h.next(value)
}

// Error broadcasts a terminal error and stops the subject.
func (s *Subject[T]) Error(err error) {
	s.h.stop(err)
}

// Complete broadcasts completion and stops the subject.
func (s *Subject[T]) Complete() {
	s.h.stop(nil)
}

// AsObserver returns an Observer that feeds this subject, so it can be
// subscribed to another Observable.
func (s *Subject[T]) AsObserver() Observer[T] {
	return Observer[T]{
		Next:     s.Next,
		Error:    s.Error,
		Complete: s.Complete,
	}
}

// AsObservable hides the sink side of the subject.
func (s *Subject[T]) AsObservable() *Observable[T] {
	return s.Observable
}

// Observers returns the number of live subscribers.
func (s *Subject[T]) Observers() int {
	return s.h.count()
}

// BehaviorSubject is a Subject with a current value.
//
// New subscribers receive the current value before joining the broadcast.
// Once stopped, late subscribers only receive the terminal event.
type BehaviorSubject[T any] struct {
	*Subject[T]
	value T
}

// NewBehaviorSubject creates a BehaviorSubject holding initial.
func NewBehaviorSubject[T any](initial T) *BehaviorSubject[T] {
	b := &BehaviorSubject[T]{value: initial}
	b.Subject = newSubject(&hub[T]{
		retain: func(v T) { b.value = v },
		replay: func() []T { return []T{b.value} },
	})
	return b
}

// Value returns the current value.
func (b *BehaviorSubject[T]) Value() T {
	b.h.mu.Lock()
	defer b.h.mu.Unlock()
	return b.value
}

// ReplaySubject is a Subject that buffers the latest values.
//
// New subscribers receive the buffered values in order, then join the
// broadcast. Late subscribers of a stopped ReplaySubject receive the buffer
// followed by the terminal event.
type ReplaySubject[T any] struct {
	*Subject[T]
	bufferSize int
	buffer     *list.List[T]
}

// NewReplaySubject creates a ReplaySubject keeping at most bufferSize values,
// evicting the oldest once full. bufferSize <= 0 keeps every value.
func NewReplaySubject[T any](bufferSize int) *ReplaySubject[T] {
	r := &ReplaySubject[T]{bufferSize: bufferSize, buffer: list.New[T]()}
	r.Subject = newSubject(&hub[T]{
		retain:        r.push,
		replay:        r.values,
		replayStopped: true,
	})
	return r
}

// push appends to the buffer. Caller holds the hub lock.
func (r *ReplaySubject[T]) push(v T) {
	r.buffer.PushBack(v)
	if r.bufferSize > 0 && r.buffer.Len() > r.bufferSize {
		r.buffer.Remove(r.buffer.Front())
	}
}

// values copies the buffer. Caller holds the hub lock.
func (r *ReplaySubject[T]) values() []T {
	out := make([]T, 0, r.buffer.Len())
	for e := r.buffer.Front(); e != nil; e = e.Next() {
		out = append(out, e.Value)
	}
	return out
}

// Buffered returns a copy of the replay buffer, oldest first.
func (r *ReplaySubject[T]) Buffered() []T {
	r.h.mu.Lock()
	defer r.h.mu.Unlock()
	return r.values()
}

// Reference is a Subject that remembers the latest value, if any.
//
// Unlike BehaviorSubject it starts empty: subscribers only receive a replayed
// value once something has been pushed. Zero values are ordinary payloads.
type Reference[T any] struct {
	*Subject[T]
	last T
	ok   bool
}

// NewReference creates an empty Reference.
func NewReference[T any]() *Reference[T] {
	r := &Reference[T]{}
	r.Subject = newSubject(&hub[T]{
		retain: func(v T) {
			r.last = v
			r.ok = true
		},
		replay: func() []T {
			if !r.ok {
				return nil
			}
			return []T{r.last}
		},
		replayStopped: true,
	})
	return r
}

// Get returns the latest value and whether one has been pushed.
func (r *Reference[T]) Get() (T, bool) {
	r.h.mu.Lock()
	defer r.h.mu.Unlock()
	return r.last, r.ok
}
