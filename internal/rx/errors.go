package rx

import (
	"errors"
	"fmt"
)

// RuntimeError represents a failure detected by the stream engine itself,
// as opposed to an error produced by user code and forwarded verbatim.
//
// Runtime errors include:
//   - Recovered panics: a producer or Next handler panicked with a non-error value
//   - Unhandled errors: Error reached an Observer without an Error callback
//   - Handler panics: an Error or Complete callback panicked
//   - Unsupported inputs: From was given something it cannot observe
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Value is the recovered panic value (ErrCodePanic) or the rejected
	// input (ErrCodeNotObservable).
	Value any

	// Err is the wrapped cause, if any.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodePanic indicates a producer or handler panicked.
	ErrCodePanic RuntimeErrorCode = "PANIC"

	// ErrCodeUnhandled indicates an error was delivered to an Observer
	// without an Error callback.
	ErrCodeUnhandled RuntimeErrorCode = "UNHANDLED_ERROR"

	// ErrCodeHandlerPanic indicates an Error or Complete callback panicked.
	// The subscription is already closed, so it is re-raised, not delivered.
	ErrCodeHandlerPanic RuntimeErrorCode = "HANDLER_PANIC"

	// ErrCodeNotObservable indicates From received an unsupported input.
	ErrCodeNotObservable RuntimeErrorCode = "NOT_OBSERVABLE"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped cause.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// IsPanicError returns true if the error is a recovered panic.
// Uses errors.As to handle wrapped errors.
func IsPanicError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodePanic
	}
	return false
}

// IsUnhandledError returns true if the error (or a recovered panic value
// converted with errors.As) reports an error nobody handled.
func IsUnhandledError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeUnhandled
	}
	return false
}

// NewPanicError creates a RuntimeError for a recovered panic value.
func NewPanicError(value any) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodePanic,
		Message: fmt.Sprintf("recovered panic: %v", value),
		Value:   value,
	}
}

// NewUnhandledError creates a RuntimeError wrapping an error that reached an
// Observer without an Error callback.
func NewUnhandledError(err error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeUnhandled,
		Message: "error delivered to observer without error handler",
		Err:     err,
	}
}

// IsHandlerPanic returns true if the error reports a panic raised by an
// Error or Complete callback.
func IsHandlerPanic(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeHandlerPanic
	}
	return false
}

// NewHandlerPanicError creates a RuntimeError for a panic raised by a
// terminal callback. An error panic value is kept as the cause.
func NewHandlerPanicError(value any) *RuntimeError {
	re := &RuntimeError{
		Code:    ErrCodeHandlerPanic,
		Message: fmt.Sprintf("panic in terminal handler: %v", value),
		Value:   value,
	}
	if err, ok := value.(error); ok {
		re.Err = err
	}
	return re
}

// NewNotObservableError creates a RuntimeError for an input From cannot convert.
func NewNotObservableError(input any) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeNotObservable,
		Message: fmt.Sprintf("cannot observe value of type %T", input),
		Value:   input,
	}
}

// errorFromPanic converts a recovered panic value into the error delivered
// downstream. Error values pass through unchanged.
func errorFromPanic(value any) error {
	if err, ok := value.(error); ok {
		return err
	}
	return NewPanicError(value)
}

// mustUnwind reports whether a recovered value must keep unwinding instead
// of being delivered as an error.
func mustUnwind(value any) bool {
	re, ok := value.(*RuntimeError)
	return ok && (re.Code == ErrCodeUnhandled || re.Code == ErrCodeHandlerPanic)
}

// rethrowTerminal re-raises a panic from an Error or Complete callback as an
// ErrCodeHandlerPanic RuntimeError. Must be deferred directly.
func rethrowTerminal() {
	if r := recover(); r != nil {
		if mustUnwind(r) {
			panic(r)
		}
		panic(NewHandlerPanicError(r))
	}
}
