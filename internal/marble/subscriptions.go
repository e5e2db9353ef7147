package marble

import (
	"strings"
)

// Unsubscribed marks a SubscriptionLog that is still open.
const Unsubscribed = -1

// SubscriptionLog records when a test source was subscribed and released.
// Unsubscribed is the frame its teardown ran, or the Unsubscribed constant.
type SubscriptionLog struct {
	Subscribed   int `json:"subscribed" yaml:"subscribed"`
	Unsubscribed int `json:"unsubscribed" yaml:"unsubscribed"`
}

// ParseSubscription reads a subscription diagram such as "--^---!".
// '^' is required; '!' is optional.
func ParseSubscription(diagram string) (SubscriptionLog, error) {
	log := SubscriptionLog{Subscribed: -1, Unsubscribed: Unsubscribed}
	var (
		frame int
		group = -1
	)
	at := func() int {
		if group >= 0 {
			return group
		}
		return frame
	}

	for pos, c := range diagram {
		switch c {
		case ' ':
			continue
		case '-':
		case '(':
			if group >= 0 {
				return log, &ParseError{Diagram: diagram, Pos: pos, Reason: "nested group"}
			}
			group = frame
		case ')':
			if group < 0 {
				return log, &ParseError{Diagram: diagram, Pos: pos, Reason: "unmatched ')'"}
			}
			group = -1
		case '^':
			if log.Subscribed >= 0 {
				return log, &ParseError{Diagram: diagram, Pos: pos, Reason: "duplicate subscription point"}
			}
			log.Subscribed = at()
		case '!':
			if log.Subscribed < 0 {
				return log, &ParseError{Diagram: diagram, Pos: pos, Reason: "unsubscription before subscription"}
			}
			if log.Unsubscribed != Unsubscribed {
				return log, &ParseError{Diagram: diagram, Pos: pos, Reason: "duplicate unsubscription point"}
			}
			log.Unsubscribed = at()
		default:
			return log, &ParseError{Diagram: diagram, Pos: pos, Reason: "unexpected character " + string(c)}
		}
		frame++
	}
	if group >= 0 {
		return log, &ParseError{Diagram: diagram, Pos: len(diagram), Reason: "unclosed group"}
	}
	if log.Subscribed < 0 {
		return log, &ParseError{Diagram: diagram, Pos: len(diagram), Reason: "missing subscription point"}
	}
	return log, nil
}

// String renders the log as a subscription diagram.
func (l SubscriptionLog) String() string {
	var b strings.Builder
	b.WriteString(strings.Repeat("-", max(l.Subscribed, 0)))
	switch {
	case l.Unsubscribed == Unsubscribed:
		b.WriteByte('^')
	case l.Unsubscribed == l.Subscribed:
		b.WriteString("(^!)")
	default:
		b.WriteByte('^')
		b.WriteString(strings.Repeat("-", l.Unsubscribed-l.Subscribed-1))
		b.WriteByte('!')
	}
	return b.String()
}
