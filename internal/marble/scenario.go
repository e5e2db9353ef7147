package marble

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// Scenario describes a stream test in YAML: named sources, how they are
// combined, an operator chain, and the expected output.
//
//	name: take_two
//	description: take(2) completes on the second value
//	cold:
//	  src: "--a-----b----c---d--|"
//	inputs: [src]
//	operators:
//	  - op: take
//	    count: 2
//	expect:
//	  marble: "--a-----(b|)"
//	subscriptions:
//	  src: ["^-------!"]
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Cold maps source names to cold diagrams. Each subscription replays
	// the diagram from its own frame zero.
	Cold map[string]string `yaml:"cold,omitempty"`

	// Hot maps source names to hot diagrams, played once from frame zero.
	Hot map[string]string `yaml:"hot,omitempty"`

	// Combine joins the inputs: merge, concat, combineLatest or zip.
	// Empty means a single input is used as is.
	// combineLatest and zip emit the tuple members concatenated.
	Combine string `yaml:"combine,omitempty"`

	// Inputs names the sources fed to Combine, in order.
	Inputs []string `yaml:"inputs"`

	// Operators are applied left to right after Combine.
	Operators []OperatorStep `yaml:"operators,omitempty"`

	// UnsubscribeAt releases the result on this frame.
	UnsubscribeAt *int `yaml:"unsubscribe_at,omitempty"`

	// MaxFrames bounds the run. Defaults to DefaultMaxFrames.
	MaxFrames int `yaml:"max_frames,omitempty"`

	// Expect is the expected output. If nil only golden comparison applies.
	Expect *ExpectClause `yaml:"expect,omitempty"`

	// Subscriptions maps source names to their expected subscription
	// diagrams, in subscription order.
	Subscriptions map[string][]string `yaml:"subscriptions,omitempty"`
}

// OperatorStep is one operator of a scenario chain.
type OperatorStep struct {
	// Op is the operator name (see the Op constants).
	Op string `yaml:"op"`

	// Count is the number of values to take (take).
	Count int `yaml:"count,omitempty"`

	// Values are dropped (filter).
	Values []string `yaml:"values,omitempty"`

	// Prefix is prepended to every value (map).
	Prefix string `yaml:"prefix,omitempty"`

	// Frames is the quiet period (debounce).
	Frames int `yaml:"frames,omitempty"`

	// Source names the inner source (switchMap, mergeMap, exhaustMap) or the
	// replacement (catchError; empty completes instead).
	Source string `yaml:"source,omitempty"`
}

// ExpectClause is the expected output, as a diagram or an explicit event
// list. Exactly one of the two is set.
type ExpectClause struct {
	Marble string          `yaml:"marble,omitempty"`
	Events []ExpectedEvent `yaml:"events,omitempty"`
}

// ExpectedEvent is one expected output event.
type ExpectedEvent struct {
	Frame int    `yaml:"frame"`
	Kind  string `yaml:"kind"` // next, error, complete
	Value string `yaml:"value,omitempty"`
}

// Combinator names.
const (
	CombineMerge         = "merge"
	CombineConcat        = "concat"
	CombineCombineLatest = "combineLatest"
	CombineZip           = "zip"
)

// Operator names.
const (
	OpTake       = "take"
	OpFilter     = "filter"
	OpMap        = "map"
	OpDistinct   = "distinct"
	OpDebounce   = "debounce"
	OpSwitchMap  = "switchMap"
	OpMergeMap   = "mergeMap"
	OpExhaustMap = "exhaustMap"
	OpCatchError = "catchError"
	OpLog        = "log"
)

var (
	validCombinators = []string{"", CombineMerge, CombineConcat, CombineCombineLatest, CombineZip}
	validKinds       = []string{"next", "error", "complete"}
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or fails validation.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict fields catch typos like "operator:" vs "operators:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and consistent.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return errors.New("name is required")
	}
	if s.Description == "" {
		return errors.New("description is required")
	}
	if len(s.Cold)+len(s.Hot) == 0 {
		return errors.New("at least one cold or hot source is required")
	}

	for name, diagram := range s.Cold {
		if _, ok := s.Hot[name]; ok {
			return fmt.Errorf("source %q is declared both cold and hot", name)
		}
		if _, err := Parse(diagram); err != nil {
			return fmt.Errorf("cold source %q: %w", name, err)
		}
	}
	for name, diagram := range s.Hot {
		if _, err := Parse(diagram); err != nil {
			return fmt.Errorf("hot source %q: %w", name, err)
		}
	}

	if !slices.Contains(validCombinators, s.Combine) {
		return fmt.Errorf("unknown combine %q", s.Combine)
	}
	if len(s.Inputs) == 0 {
		return errors.New("inputs list is required and must be non-empty")
	}
	if s.Combine == "" && len(s.Inputs) != 1 {
		return fmt.Errorf("%d inputs need a combine", len(s.Inputs))
	}
	for _, in := range s.Inputs {
		if !s.hasSource(in) {
			return fmt.Errorf("input %q is not a declared source", in)
		}
	}

	for i, step := range s.Operators {
		if err := s.validateStep(step); err != nil {
			return fmt.Errorf("operators[%d]: %w", i, err)
		}
	}

	if s.UnsubscribeAt != nil && *s.UnsubscribeAt < 0 {
		return errors.New("unsubscribe_at must not be negative")
	}
	if s.MaxFrames < 0 {
		return errors.New("max_frames must not be negative")
	}

	if s.Expect != nil {
		if err := validateExpect(s.Expect); err != nil {
			return fmt.Errorf("expect: %w", err)
		}
	}

	for name, diagrams := range s.Subscriptions {
		if !s.hasSource(name) {
			return fmt.Errorf("subscriptions: %q is not a declared source", name)
		}
		for _, d := range diagrams {
			if _, err := ParseSubscription(d); err != nil {
				return fmt.Errorf("subscriptions %q: %w", name, err)
			}
		}
	}
	return nil
}

func (s *Scenario) validateStep(step OperatorStep) error {
	switch step.Op {
	case OpTake:
		if step.Count < 0 {
			return errors.New("take count must not be negative")
		}
	case OpFilter:
		if len(step.Values) == 0 {
			return errors.New("filter needs values to drop")
		}
	case OpMap, OpDistinct, OpLog:
	case OpDebounce:
		if step.Frames <= 0 {
			return errors.New("debounce frames must be positive")
		}
	case OpSwitchMap, OpMergeMap, OpExhaustMap:
		if !s.hasSource(step.Source) {
			return fmt.Errorf("%s source %q is not a declared source", step.Op, step.Source)
		}
	case OpCatchError:
		if step.Source != "" && !s.hasSource(step.Source) {
			return fmt.Errorf("catchError source %q is not a declared source", step.Source)
		}
	case "":
		return errors.New("op is required")
	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}
	return nil
}

func validateExpect(e *ExpectClause) error {
	if (e.Marble == "") == (len(e.Events) == 0) {
		return errors.New("exactly one of marble or events is required")
	}
	if e.Marble != "" {
		_, err := Parse(e.Marble)
		return err
	}
	for i, ev := range e.Events {
		if !slices.Contains(validKinds, ev.Kind) {
			return fmt.Errorf("events[%d]: unknown kind %q", i, ev.Kind)
		}
		if ev.Frame < 0 {
			return fmt.Errorf("events[%d]: frame must not be negative", i)
		}
	}
	return nil
}

func (s *Scenario) hasSource(name string) bool {
	if _, ok := s.Cold[name]; ok {
		return true
	}
	_, ok := s.Hot[name]
	return ok
}
