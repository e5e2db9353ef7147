package rx

// NotificationKind distinguishes the three events of a stream.
type NotificationKind int

const (
	// KindNext carries a value.
	KindNext NotificationKind = iota + 1
	// KindError carries the terminal error.
	KindError
	// KindComplete marks successful termination.
	KindComplete
)

// String returns the lowercase event name.
func (k NotificationKind) String() string {
	switch k {
	case KindNext:
		return "next"
	case KindError:
		return "error"
	case KindComplete:
		return "complete"
	}
	return "unknown"
}

// Notification is a stream event reified as a value.
type Notification[T any] struct {
	Kind  NotificationKind
	Value T     // set for KindNext
	Err   error // set for KindError
}

// NextOf creates a KindNext notification.
func NextOf[T any](v T) Notification[T] {
	return Notification[T]{Kind: KindNext, Value: v}
}

// ErrorOf creates a KindError notification.
func ErrorOf[T any](err error) Notification[T] {
	return Notification[T]{Kind: KindError, Err: err}
}

// CompleteOf creates a KindComplete notification.
func CompleteOf[T any]() Notification[T] {
	return Notification[T]{Kind: KindComplete}
}

// Deliver pushes the notification into sub.
func (n Notification[T]) Deliver(sub *Subscription[T]) {
	switch n.Kind {
	case KindNext:
		sub.Next(n.Value)
	case KindError:
		sub.Error(n.Err)
	case KindComplete:
		sub.Complete()
	}
}

// Materialize turns every event of the source into a Notification value.
// Error and completion become values followed by completion, so the result
// never fails.
func Materialize[T any]() OperatorFunc[T, Notification[T]] {
	return Operate(func(dst *Subscription[Notification[T]]) Observer[T] {
		return Observer[T]{
			Next: func(v T) { dst.Next(NextOf(v)) },
			Error: func(err error) {
				dst.Next(ErrorOf[T](err))
				dst.Complete()
			},
			Complete: func() {
				dst.Next(CompleteOf[T]())
				dst.Complete()
			},
		}
	})
}
