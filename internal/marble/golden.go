package marble

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/rxflow/internal/rx"
)

// Snapshot is the golden-file form of a scenario result.
type Snapshot struct {
	ScenarioName  string              `json:"scenario_name"`
	Marble        string              `json:"marble"`
	Events        []SnapshotEvent     `json:"events"`
	Subscriptions map[string][]string `json:"subscriptions"`
}

// SnapshotEvent is one event of a Snapshot.
type SnapshotEvent struct {
	Frame int    `json:"frame"`
	Kind  string `json:"kind"`
	Value string `json:"value,omitempty"`
	Error string `json:"error,omitempty"`
}

// NewSnapshot captures result for the named scenario.
func NewSnapshot(name string, result *Result) Snapshot {
	snap := Snapshot{
		ScenarioName:  name,
		Marble:        result.Marble,
		Events:        SnapshotEvents(result.Events),
		Subscriptions: make(map[string][]string, len(result.Subscriptions)),
	}
	for name, logs := range result.Subscriptions {
		diagrams := make([]string, 0, len(logs))
		for _, l := range logs {
			diagrams = append(diagrams, l.String())
		}
		snap.Subscriptions[name] = diagrams
	}
	return snap
}

// SnapshotEvents converts events to their serializable form.
func SnapshotEvents(events []Event[string]) []SnapshotEvent {
	out := make([]SnapshotEvent, 0, len(events))
	for _, ev := range events {
		se := SnapshotEvent{Frame: ev.Frame, Kind: ev.Notification.Kind.String()}
		switch ev.Notification.Kind {
		case rx.KindNext:
			se.Value = ev.Notification.Value
		case rx.KindError:
			se.Error = ev.Notification.Err.Error()
		}
		out = append(out, se)
	}
	return out
}

// Marshal encodes the snapshot as indented JSON with a trailing newline.
// Map keys are sorted, so equal snapshots encode to equal bytes.
func (s Snapshot) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/marble -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario, opts ...RunOption) (*Result, error) {
	t.Helper()

	result, err := Run(scenario, opts...)
	if err != nil {
		return nil, err
	}

	data, err := NewSnapshot(scenario.Name, result).Marshal()
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)

	return result, nil
}
