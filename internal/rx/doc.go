// Package rx implements a push-based reactive stream engine.
//
// An Observable is a lazy, restartable description of a producer. Nothing
// happens until Subscribe is called; every call runs the producer afresh and
// returns a Subscription, the live cancellable handle for that run.
//
// ARCHITECTURE:
//
// Synchronous Push:
// Next, Error and Complete execute the whole downstream operator chain before
// returning to the caller. There is no implicit queue and no goroutine per
// subscriber. The only suspension points are Scheduler callbacks (DebounceTime,
// Timer, Interval) and the pump goroutine of From over a channel.
//
// Operator Plumbing:
// Operators are free functions of type OperatorFunc[T, R] composed with
// Observable.Pipe or the PipeN helpers. Operate centralizes the wiring:
// upstream errors and completion are forwarded unless the operator intercepts
// them, and the upstream subscription is linked to the downstream one before
// the upstream producer runs, so a synchronous source stops as soon as the
// downstream closes.
//
// Multicast:
// Subject, BehaviorSubject, ReplaySubject and Reference are Observables that
// are also sinks. Broadcasts go to a snapshot of the subscriber list taken
// under a mutex; the mutex is never held while user callbacks run, so
// subscribing or unsubscribing from inside a handler is safe. A new
// subscriber joins the list when its replay values are read; events
// broadcast while it is still replaying are queued and delivered after them.
//
// LIFECYCLE INVARIANTS:
//
//   - Next is only delivered while the Subscription is open.
//   - Error and Complete are delivered at most once, then the Subscription closes.
//   - Every teardown runs at most once, whatever closed the Subscription.
//   - An operator that owns child subscriptions releases every active child
//     when its own Subscription closes.
//
// UNHANDLED ERRORS:
//
// Error on a Subscription whose Observer has no Error callback panics with a
// *RuntimeError of code ErrCodeUnhandled. The engine never recovers that panic:
// it escapes to whoever pushed the failing event (Next, Error, Subscribe, or a
// Subject broadcast). Register an Error callback to opt out.
//
// A panic inside an Error or Complete callback cannot be delivered, since the
// Subscription is already closed. It escapes the same way, as a *RuntimeError
// of code ErrCodeHandlerPanic.
package rx
