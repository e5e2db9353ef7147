package marble

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/samber/lo"

	"github.com/roach88/rxflow/internal/rx"
	"github.com/roach88/rxflow/internal/testutil"
)

// Result is the outcome of running a scenario.
type Result struct {
	// Pass is true when every expectation matched.
	Pass bool

	// Events is everything the result stream delivered.
	Events []Event[string]

	// Marble is Events rendered as a diagram.
	Marble string

	// Subscriptions holds the subscription history of every source.
	Subscriptions map[string][]SubscriptionLog

	// Errors lists expectation mismatches. Empty if Pass is true.
	Errors []string
}

// NewResult creates a passing result with no events.
func NewResult() *Result {
	return &Result{
		Pass:          true,
		Events:        []Event[string]{},
		Subscriptions: make(map[string][]SubscriptionLog),
		Errors:        []string{},
	}
}

// AddError records a mismatch and marks the result as failed.
func (r *Result) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
	r.Pass = false
}

// RunOption configures Run.
type RunOption func(*runConfig)

type runConfig struct {
	logger *slog.Logger
}

// WithLogger sets the logger used by "log" operator steps.
//
// Default: logs are discarded.
func WithLogger(logger *slog.Logger) RunOption {
	return func(c *runConfig) {
		c.logger = logger
	}
}

// runner holds the sources of one scenario run.
type runner struct {
	scenario  *Scenario
	scheduler *testutil.VirtualScheduler
	logger    *slog.Logger
	sources   map[string]*rx.Observable[string]
	logs      map[string]func() []SubscriptionLog
}

// Run executes a scenario in fresh virtual time and checks its expectations.
//
// The returned error reports scenarios that cannot be executed at all;
// expectation mismatches are reported through Result.Errors.
func Run(scenario *Scenario, opts ...RunOption) (*Result, error) {
	cfg := runConfig{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	r := &runner{
		scenario:  scenario,
		scheduler: testutil.NewVirtualScheduler(),
		logger:    cfg.logger,
		sources:   make(map[string]*rx.Observable[string]),
		logs:      make(map[string]func() []SubscriptionLog),
	}
	if err := r.buildSources(); err != nil {
		return nil, err
	}

	stream, err := r.build()
	if err != nil {
		return nil, err
	}

	var recordOpts []RecordOption
	if scenario.UnsubscribeAt != nil {
		recordOpts = append(recordOpts, UnsubscribeAt(*scenario.UnsubscribeAt))
	}
	if scenario.MaxFrames > 0 {
		recordOpts = append(recordOpts, MaxFrames(scenario.MaxFrames))
	}

	result := NewResult()
	result.Events = Record(r.scheduler, stream, recordOpts...)
	result.Marble = RenderStrings(result.Events)
	for name, logs := range r.logs {
		result.Subscriptions[name] = logs()
	}

	r.checkExpect(result)
	r.checkSubscriptions(result)
	return result, nil
}

func (r *runner) buildSources() (err error) {
	// Cold and Hot panic on diagrams validation let through, such as a '^'
	// in a cold diagram.
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("failed to build sources: %v", p)
		}
	}()
	for _, name := range sortedKeys(r.scenario.Cold) {
		c := Cold[string](r.scheduler, r.scenario.Cold[name], nil)
		r.sources[name] = c.Observable
		r.logs[name] = c.Subscriptions
	}
	for _, name := range sortedKeys(r.scenario.Hot) {
		h := Hot[string](r.scheduler, r.scenario.Hot[name], nil)
		r.sources[name] = h.Observable
		r.logs[name] = h.Subscriptions
	}
	return nil
}

// build wires inputs, combinator and operators into the result stream.
func (r *runner) build() (*rx.Observable[string], error) {
	inputs := lo.Map(r.scenario.Inputs, func(name string, _ int) *rx.Observable[string] {
		return r.sources[name]
	})

	var stream *rx.Observable[string]
	switch r.scenario.Combine {
	case "":
		stream = inputs[0]
	case CombineMerge:
		stream = rx.Merge(inputs...)
	case CombineConcat:
		stream = rx.Concat(inputs...)
	case CombineCombineLatest:
		stream = rx.Map(joinTuple)(rx.CombineLatest(inputs...))
	case CombineZip:
		stream = rx.Map(joinTuple)(rx.Zip(inputs...))
	default:
		return nil, fmt.Errorf("unknown combine %q", r.scenario.Combine)
	}

	for i, step := range r.scenario.Operators {
		op, err := r.operator(step)
		if err != nil {
			return nil, fmt.Errorf("operators[%d]: %w", i, err)
		}
		stream = op(stream)
	}
	return stream, nil
}

func (r *runner) operator(step OperatorStep) (rx.OperatorFunc[string, string], error) {
	switch step.Op {
	case OpTake:
		return rx.Take[string](step.Count), nil
	case OpFilter:
		return rx.Filter(func(v string) bool { return !lo.Contains(step.Values, v) }), nil
	case OpMap:
		return rx.Map(func(v string) string { return step.Prefix + v }), nil
	case OpDistinct:
		return rx.DistinctUntilChanged[string](), nil
	case OpDebounce:
		return rx.DebounceTime[string](r.scheduler.Frames(step.Frames), rx.WithScheduler(r.scheduler)), nil
	case OpSwitchMap:
		return rx.SwitchMap(r.project(step.Source)), nil
	case OpMergeMap:
		return rx.MergeMap(r.project(step.Source)), nil
	case OpExhaustMap:
		return rx.ExhaustMap(r.project(step.Source)), nil
	case OpCatchError:
		replacement := r.sources[step.Source]
		return rx.CatchError(func(error, *rx.Observable[string]) *rx.Observable[string] {
			return replacement
		}), nil
	case OpLog:
		return rx.Log[string](r.logger, r.scenario.Name), nil
	}
	return nil, fmt.Errorf("unknown op %q", step.Op)
}

func (r *runner) project(source string) func(string) *rx.Observable[string] {
	inner := r.sources[source]
	return func(string) *rx.Observable[string] { return inner }
}

func (r *runner) checkExpect(result *Result) {
	e := r.scenario.Expect
	if e == nil {
		return
	}

	var want []eventKey
	if e.Marble != "" {
		parsed, err := Parse(e.Marble)
		if err != nil {
			result.AddError(fmt.Sprintf("expect marble: %v", err))
			return
		}
		want = lo.Map(parsed, func(ev Event[string], _ int) eventKey { return keyOf(ev) })
	} else {
		want = lo.Map(e.Events, func(ev ExpectedEvent, _ int) eventKey {
			return eventKey{Frame: ev.Frame, Kind: ev.Kind, Value: ev.Value}
		})
	}
	got := lo.Map(result.Events, func(ev Event[string], _ int) eventKey { return keyOf(ev) })

	if slices.Equal(want, got) {
		return
	}
	result.AddError(fmt.Sprintf("output mismatch: want %s, got %s", formatKeys(want), formatKeys(got)))
}

func (r *runner) checkSubscriptions(result *Result) {
	for _, name := range sortedKeys(r.scenario.Subscriptions) {
		want := make([]SubscriptionLog, 0, len(r.scenario.Subscriptions[name]))
		for _, d := range r.scenario.Subscriptions[name] {
			log, err := ParseSubscription(d)
			if err != nil {
				result.AddError(fmt.Sprintf("subscriptions %q: %v", name, err))
				return
			}
			want = append(want, log)
		}
		got := result.Subscriptions[name]
		if !slices.Equal(want, got) {
			result.AddError(fmt.Sprintf("subscriptions %q mismatch: want %v, got %v", name, want, got))
		}
	}
}

// eventKey is the comparable shape of an event. Error text is not compared.
type eventKey struct {
	Frame int
	Kind  string
	Value string
}

func keyOf(ev Event[string]) eventKey {
	k := eventKey{Frame: ev.Frame, Kind: ev.Notification.Kind.String()}
	if ev.Notification.Kind == rx.KindNext {
		k.Value = ev.Notification.Value
	}
	return k
}

func formatKeys(keys []eventKey) string {
	parts := lo.Map(keys, func(k eventKey, _ int) string {
		if k.Kind == "next" {
			return fmt.Sprintf("%d:%s", k.Frame, k.Value)
		}
		return fmt.Sprintf("%d:%s", k.Frame, k.Kind)
	})
	return "[" + strings.Join(parts, " ") + "]"
}

func joinTuple(values []string) string {
	return strings.Join(values, "")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := lo.Keys(m)
	slices.Sort(keys)
	return keys
}
