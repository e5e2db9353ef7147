package marble

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario_ValidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "take.yaml")
	content := `
name: take_one
description: "take(1) keeps the first value"
cold:
  src: "-a-b|"
inputs: [src]
operators:
  - op: take
    count: 1
expect:
  marble: "-(a|)"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "take_one", scenario.Name)
	assert.Equal(t, "-a-b|", scenario.Cold["src"])
	assert.Equal(t, []string{"src"}, scenario.Inputs)
	require.Len(t, scenario.Operators, 1)
	assert.Equal(t, OpTake, scenario.Operators[0].Op)
	assert.Equal(t, 1, scenario.Operators[0].Count)
	assert.Equal(t, "-(a|)", scenario.Expect.Marble)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseScenario_UnknownField(t *testing.T) {
	_, err := ParseScenario([]byte(`
name: typo
description: operator instead of operators
cold: {src: "-a|"}
inputs: [src]
operator:
  - op: take
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseScenario_Validation(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing name",
			yaml:    `{description: d, cold: {s: "-a|"}, inputs: [s]}`,
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			yaml:    `{name: n, cold: {s: "-a|"}, inputs: [s]}`,
			wantErr: "description is required",
		},
		{
			name:    "no sources",
			yaml:    `{name: n, description: d, inputs: [s]}`,
			wantErr: "at least one cold or hot source",
		},
		{
			name:    "cold and hot share a name",
			yaml:    `{name: n, description: d, cold: {s: "-a|"}, hot: {s: "-b|"}, inputs: [s]}`,
			wantErr: "both cold and hot",
		},
		{
			name:    "bad diagram",
			yaml:    `{name: n, description: d, cold: {s: "(a"}, inputs: [s]}`,
			wantErr: "unclosed group",
		},
		{
			name:    "unknown combine",
			yaml:    `{name: n, description: d, cold: {s: "-a|"}, combine: race, inputs: [s]}`,
			wantErr: `unknown combine "race"`,
		},
		{
			name:    "several inputs without combine",
			yaml:    `{name: n, description: d, cold: {s: "-a|", t: "-b|"}, inputs: [s, t]}`,
			wantErr: "2 inputs need a combine",
		},
		{
			name:    "undeclared input",
			yaml:    `{name: n, description: d, cold: {s: "-a|"}, inputs: [x]}`,
			wantErr: `input "x" is not a declared source`,
		},
		{
			name:    "unknown op",
			yaml:    `{name: n, description: d, cold: {s: "-a|"}, inputs: [s], operators: [{op: scan}]}`,
			wantErr: `unknown op "scan"`,
		},
		{
			name:    "debounce without frames",
			yaml:    `{name: n, description: d, cold: {s: "-a|"}, inputs: [s], operators: [{op: debounce}]}`,
			wantErr: "debounce frames must be positive",
		},
		{
			name:    "switchMap without source",
			yaml:    `{name: n, description: d, cold: {s: "-a|"}, inputs: [s], operators: [{op: switchMap}]}`,
			wantErr: "switchMap source",
		},
		{
			name:    "expect with both forms",
			yaml:    `{name: n, description: d, cold: {s: "-a|"}, inputs: [s], expect: {marble: "-a|", events: [{frame: 1, kind: next, value: a}]}}`,
			wantErr: "exactly one of marble or events",
		},
		{
			name:    "expect unknown kind",
			yaml:    `{name: n, description: d, cold: {s: "-a|"}, inputs: [s], expect: {events: [{frame: 1, kind: done}]}}`,
			wantErr: `unknown kind "done"`,
		},
		{
			name:    "subscriptions for unknown source",
			yaml:    `{name: n, description: d, cold: {s: "-a|"}, inputs: [s], subscriptions: {x: ["^"]}}`,
			wantErr: `subscriptions: "x" is not a declared source`,
		},
		{
			name:    "bad subscription diagram",
			yaml:    `{name: n, description: d, cold: {s: "-a|"}, inputs: [s], subscriptions: {s: ["--"]}}`,
			wantErr: "missing subscription point",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid scenario")
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRun_ExpectationMismatch(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: wrong
description: the expectation is off by one frame
cold: {src: "-a|"}
inputs: [src]
expect: {marble: "--a|"}
subscriptions: {src: ["^--!"]}
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "output mismatch: want [2:a 3:complete], got [1:a 2:complete]")
	assert.Contains(t, result.Errors[1], `subscriptions "src" mismatch`)
}

func TestRun_ColdCaretIsExecutionError(t *testing.T) {
	scenario := &Scenario{
		Name:        "caret",
		Description: "cold diagrams cannot carry a subscription point",
		Cold:        map[string]string{"src": "-^-a|"},
		Inputs:      []string{"src"},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to build sources")
}

func TestRun_Operators(t *testing.T) {
	tests := []struct {
		name      string
		cold      map[string]string
		inputs    []string
		operators []OperatorStep
		want      string
	}{
		{
			name:      "filter drops listed values",
			cold:      map[string]string{"s": "-a-b-c|"},
			inputs:    []string{"s"},
			operators: []OperatorStep{{Op: OpFilter, Values: []string{"b"}}},
			want:      "-a---c|",
		},
		{
			name:      "distinct drops repeats",
			cold:      map[string]string{"s": "-aab-a|"},
			inputs:    []string{"s"},
			operators: []OperatorStep{{Op: OpDistinct}},
			want:      "-a-b-a|",
		},
		{
			name:      "take zero completes immediately",
			cold:      map[string]string{"s": "-a|"},
			inputs:    []string{"s"},
			operators: []OperatorStep{{Op: OpTake, Count: 0}},
			want:      "|",
		},
		{
			name:      "catchError switches to the replacement",
			cold:      map[string]string{"s": "-a#", "r": "-x|"},
			inputs:    []string{"s"},
			operators: []OperatorStep{{Op: OpCatchError, Source: "r"}},
			want:      "-a-x|",
		},
		{
			name:      "catchError without replacement completes",
			cold:      map[string]string{"s": "-a#"},
			inputs:    []string{"s"},
			operators: []OperatorStep{{Op: OpCatchError}},
			want:      "-a|",
		},
		{
			name:      "mergeMap keeps every inner",
			cold:      map[string]string{"o": "-a-b|", "i": "--x|"},
			inputs:    []string{"o"},
			operators: []OperatorStep{{Op: OpMergeMap, Source: "i"}},
			want:      "---x-x|",
		},
		{
			name:      "exhaustMap ignores values while busy",
			cold:      map[string]string{"o": "-ab---c|", "i": "--x|"},
			inputs:    []string{"o"},
			operators: []OperatorStep{{Op: OpExhaustMap, Source: "i"}},
			want:      "---x----x|",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scenario := &Scenario{
				Name:        "op",
				Description: tt.name,
				Cold:        tt.cold,
				Inputs:      tt.inputs,
				Operators:   tt.operators,
			}
			result, err := Run(scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass)
			assert.Equal(t, tt.want, result.Marble)
		})
	}
}

func TestRun_ZipAndMapValues(t *testing.T) {
	scenario := &Scenario{
		Name:        "zip",
		Description: "zip then map",
		Cold:        map[string]string{"l": "-a-b-c|", "r": "--1--2"},
		Combine:     CombineZip,
		Inputs:      []string{"l", "r"},
		Operators:   []OperatorStep{{Op: OpMap, Prefix: ">"}},
		MaxFrames:   20,
	}
	result, err := Run(scenario)
	require.NoError(t, err)

	assert.Equal(t, []Event[string]{Next(2, ">a1"), Next(5, ">b2")}, result.Events)
}

func TestRun_HotUnsubscribe(t *testing.T) {
	scenario := &Scenario{
		Name:          "hot",
		Description:   "hot source released early",
		Hot:           map[string]string{"h": "-a-b-c-|"},
		Inputs:        []string{"h"},
		Operators:     []OperatorStep{{Op: OpMap, Prefix: ">"}},
		UnsubscribeAt: intPtr(4),
	}
	result, err := Run(scenario)
	require.NoError(t, err)

	assert.Equal(t, []Event[string]{Next(1, ">a"), Next(3, ">b")}, result.Events)
	assert.Equal(t, []SubscriptionLog{{Subscribed: 0, Unsubscribed: 4}}, result.Subscriptions["h"])
}

func TestRun_LogStepWritesRecords(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	scenario := &Scenario{
		Name:        "traced",
		Description: "log step traces the stream",
		Cold:        map[string]string{"s": "-a|"},
		Inputs:      []string{"s"},
		Operators:   []OperatorStep{{Op: OpLog}},
	}
	_, err := Run(scenario, WithLogger(logger))
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "stream subscribed")
	assert.Contains(t, out, "stream=traced")
	assert.Contains(t, out, "value=a")
	assert.Contains(t, out, "stream complete")
}

func intPtr(v int) *int { return &v }
