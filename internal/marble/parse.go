package marble

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/roach88/rxflow/internal/rx"
)

// DefaultError is the error '#' stands for unless a source is configured
// with WithError.
var DefaultError = errors.New("error")

// ErrInvalidMarble is matched (errors.Is) by every *ParseError.
var ErrInvalidMarble = errors.New("invalid marble diagram")

// ParseError reports a malformed diagram.
type ParseError struct {
	Diagram string
	Pos     int // byte offset of the offending character
	Reason  string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid marble diagram %q at %d: %s", e.Diagram, e.Pos, e.Reason)
}

// Is reports whether target is ErrInvalidMarble.
func (e *ParseError) Is(target error) bool {
	return target == ErrInvalidMarble
}

// Event is one notification on the marble timeline.
type Event[T any] struct {
	Frame        int
	Notification rx.Notification[T]
}

// Next creates a value event.
func Next[T any](frame int, v T) Event[T] {
	return Event[T]{Frame: frame, Notification: rx.NextOf(v)}
}

// Error creates an error event.
func Error[T any](frame int, err error) Event[T] {
	return Event[T]{Frame: frame, Notification: rx.ErrorOf[T](err)}
}

// Complete creates a completion event.
func Complete[T any](frame int) Event[T] {
	return Event[T]{Frame: frame, Notification: rx.CompleteOf[T]()}
}

// Parse reads an event diagram. Values are returned as their one-character
// tokens; use Resolve to map them to typed values.
//
// If the diagram contains '^', frames are relative to it and events before
// it have negative frames.
func Parse(diagram string) ([]Event[string], error) {
	var (
		events  []Event[string]
		frame   int
		group   = -1 // frame of the open group, -1 outside
		grouped int  // events in the open group
		origin  int
		caret   bool
	)
	emit := func(n rx.Notification[string]) {
		f := frame
		if group >= 0 {
			f = group
			grouped++
		}
		events = append(events, Event[string]{Frame: f, Notification: n})
	}

	for pos, c := range diagram {
		switch c {
		case ' ':
			continue
		case '-':
		case '(':
			if group >= 0 {
				return nil, &ParseError{Diagram: diagram, Pos: pos, Reason: "nested group"}
			}
			group, grouped = frame, 0
		case ')':
			if group < 0 {
				return nil, &ParseError{Diagram: diagram, Pos: pos, Reason: "unmatched ')'"}
			}
			if grouped == 0 {
				return nil, &ParseError{Diagram: diagram, Pos: pos, Reason: "empty group"}
			}
			group = -1
		case '^':
			if caret {
				return nil, &ParseError{Diagram: diagram, Pos: pos, Reason: "duplicate subscription point"}
			}
			if group >= 0 {
				return nil, &ParseError{Diagram: diagram, Pos: pos, Reason: "subscription point inside group"}
			}
			caret, origin = true, frame
		case '!':
			return nil, &ParseError{Diagram: diagram, Pos: pos, Reason: "unsubscription point in event diagram"}
		case '|':
			emit(rx.CompleteOf[string]())
		case '#':
			emit(rx.ErrorOf[string](DefaultError))
		default:
			emit(rx.NextOf(string(c)))
		}
		frame++
	}
	if group >= 0 {
		return nil, &ParseError{Diagram: diagram, Pos: len(diagram), Reason: "unclosed group"}
	}

	for i := range events {
		events[i].Frame -= origin
	}
	return events, nil
}

// MustParse is Parse for diagrams known to be valid. It panics on error.
func MustParse(diagram string) []Event[string] {
	events, err := Parse(diagram)
	if err != nil {
		panic(err)
	}
	return events
}

// Resolve maps parsed tokens to values.
//
// A token missing from values resolves to itself when T is string, and is an
// error otherwise. A non-nil errValue replaces DefaultError.
func Resolve[T any](events []Event[string], values map[string]T, errValue error) ([]Event[T], error) {
	out := make([]Event[T], 0, len(events))
	for _, e := range events {
		n := e.Notification
		switch n.Kind {
		case rx.KindNext:
			v, ok := values[n.Value]
			if !ok {
				if v, ok = any(n.Value).(T); !ok {
					return nil, fmt.Errorf("%w: no value for token %q", ErrInvalidMarble, n.Value)
				}
			}
			out = append(out, Next(e.Frame, v))
		case rx.KindError:
			err := n.Err
			if errValue != nil {
				err = errValue
			}
			out = append(out, Error[T](e.Frame, err))
		case rx.KindComplete:
			out = append(out, Complete[T](e.Frame))
		}
	}
	return out, nil
}

// Render draws events as a diagram, formatting values with format.
//
// Events sharing a frame are grouped. A value whose text is wider than one
// character widens the timeline accordingly, so diagrams of such values read
// naturally but do not parse back to the same frames.
func Render[T any](events []Event[T], format func(T) string) string {
	var (
		b      strings.Builder
		cursor int
	)
	for i := 0; i < len(events); {
		f := events[i].Frame
		j := i
		for j < len(events) && events[j].Frame == f {
			j++
		}
		for ; cursor < f; cursor++ {
			b.WriteByte('-')
		}

		tokens := make([]string, 0, j-i)
		for _, e := range events[i:j] {
			tokens = append(tokens, token(e.Notification, format))
		}
		text := strings.Join(tokens, "")
		if len(tokens) > 1 {
			text = "(" + text + ")"
		}
		b.WriteString(text)
		cursor += utf8.RuneCountInString(text)
		i = j
	}
	return b.String()
}

// RenderStrings is Render for string events.
func RenderStrings(events []Event[string]) string {
	return Render(events, func(s string) string { return s })
}

func token[T any](n rx.Notification[T], format func(T) string) string {
	switch n.Kind {
	case rx.KindNext:
		return format(n.Value)
	case rx.KindError:
		return "#"
	default:
		return "|"
	}
}
