package marble

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Every scenario under testdata/scenarios must pass its own expectations and
// match its golden snapshot. Regenerate snapshots with:
//
//	go test ./internal/marble -run TestScenarios_Golden -update
func TestScenarios_Golden(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, file := range files {
		name := strings.TrimSuffix(filepath.Base(file), ".yaml")
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(file)
			require.NoError(t, err)
			require.Equal(t, name, scenario.Name, "file name must match scenario name")

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestSnapshot_Marshal(t *testing.T) {
	result := NewResult()
	result.Events = []Event[string]{Next(1, "a"), Error[string](2, DefaultError)}
	result.Marble = RenderStrings(result.Events)
	result.Subscriptions["src"] = []SubscriptionLog{{Subscribed: 0, Unsubscribed: 2}}

	data, err := NewSnapshot("failing", result).Marshal()
	require.NoError(t, err)

	want := `{
  "scenario_name": "failing",
  "marble": "-a#",
  "events": [
    {
      "frame": 1,
      "kind": "next",
      "value": "a"
    },
    {
      "frame": 2,
      "kind": "error",
      "error": "error"
    }
  ],
  "subscriptions": {
    "src": [
      "^-!"
    ]
  }
}
`
	assert.Equal(t, want, string(data))
}
