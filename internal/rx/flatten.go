package rx

import (
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"
)

// flattenPolicy selects how overlapping inner Observables are treated.
type flattenPolicy int

const (
	// policyMerge keeps every inner subscription alive.
	policyMerge flattenPolicy = iota + 1
	// policySwitch cancels the active inner before starting the next.
	policySwitch
	// policyExhaust ignores outer values while an inner is active.
	policyExhaust
)

// flattenState is the per-subscription state shared by the flattening
// operators. Inner subscriptions are indexed by handle.
//
// Inner events may arrive from scheduler goroutines, so the inner registry is
// a concurrent map and the outer flag is atomic. Completion is checked by both
// the outer and the inner side; Complete on dst is idempotent, so the race
// between them can only complete once.
type flattenState[T, R any] struct {
	dst     *Subscription[R]
	project func(T) *Observable[R]
	policy  flattenPolicy

	inners    *xsync.MapOf[uint64, *Subscription[R]]
	handles   atomic.Uint64
	outerDone atomic.Bool
}

func flatten[T, R any](policy flattenPolicy, project func(T) *Observable[R]) OperatorFunc[T, R] {
	return Operate(func(dst *Subscription[R]) Observer[T] {
		st := &flattenState[T, R]{
			dst:     dst,
			project: project,
			policy:  policy,
			inners:  xsync.NewMapOf[uint64, *Subscription[R]](),
		}
		dst.Add(st.unsubscribeAll)
		return Observer[T]{
			Next:     st.outerNext,
			Complete: st.outerComplete,
		}
	})
}

// SwitchMap maps each value to an inner Observable and mirrors only the most
// recent one: the previous inner is unsubscribed before the next subscribes.
//
// The result completes once the source has completed and the current inner
// (if any) has completed.
func SwitchMap[T, R any](project func(T) *Observable[R]) OperatorFunc[T, R] {
	return flatten(policySwitch, project)
}

// MergeMap maps each value to an inner Observable and mirrors all of them
// concurrently. It completes once the source and every inner have completed.
func MergeMap[T, R any](project func(T) *Observable[R]) OperatorFunc[T, R] {
	return flatten(policyMerge, project)
}

// ExhaustMap maps a value to an inner Observable only when no inner is
// active; values arriving meanwhile are dropped. It completes once the source
// and the active inner have completed.
func ExhaustMap[T, R any](project func(T) *Observable[R]) OperatorFunc[T, R] {
	return flatten(policyExhaust, project)
}

func (s *flattenState[T, R]) outerNext(v T) {
	switch s.policy {
	case policyExhaust:
		if s.inners.Size() > 0 {
			return
		}
	case policySwitch:
		s.unsubscribeAll()
	}

	// A panic in project unwinds to the upstream subscription, which routes
	// it to dst.Error.
	inner := s.project(v)
	if inner == nil {
		inner = Empty[R]()
	}

	id := s.handles.Add(1)
	sub := newSubscription(Observer[R]{
		Next:     s.dst.Next,
		Error:    s.dst.Error,
		Complete: func() { s.innerComplete(id) },
	})
	s.inners.Store(id, sub)
	if s.dst.Closed() {
		s.inners.Delete(id)
		return
	}
	inner.run(sub)
}

func (s *flattenState[T, R]) innerComplete(id uint64) {
	s.inners.Delete(id)
	if s.outerDone.Load() && s.inners.Size() == 0 {
		s.dst.Complete()
	}
}

func (s *flattenState[T, R]) outerComplete() {
	s.outerDone.Store(true)
	if s.inners.Size() == 0 {
		s.dst.Complete()
	}
}

// unsubscribeAll releases every active inner.
func (s *flattenState[T, R]) unsubscribeAll() {
	s.inners.Range(func(id uint64, sub *Subscription[R]) bool {
		if _, ok := s.inners.LoadAndDelete(id); ok {
			sub.Unsubscribe()
		}
		return true
	})
}
