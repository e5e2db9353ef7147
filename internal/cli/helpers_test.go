package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/rxflow/internal/testutil"
)

const takeTwoScenario = `name: take_two
description: take(2) completes on the second value
cold:
  src: "--a-----b----c---d--|"
inputs: [src]
operators:
  - op: take
    count: 2
expect:
  marble: "--a-----(b|)"
subscriptions:
  src: ["^-------!"]
`

const mergeScenario = `name: merge_pair
description: merge interleaves both sources by frame
cold:
  left: "-a---b|"
  right: "--x|"
inputs: [left, right]
combine: merge
expect:
  marble: "-ax--b|"
`

// failingScenario expects output the stream never produces.
const failingScenario = `name: wrong_expectation
description: expects a value the source never emits
cold:
  src: "-a-b|"
inputs: [src]
expect:
  marble: "-a-c|"
`

// executeCommand runs the root command with a fixed run ID and returns
// stdout, stderr and the command error.
func executeCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}

	cmd := newRootCommand(&RootOptions{IDs: testutil.NewFixedIDGenerator("run-fixed")})
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func writeScenario(t *testing.T, dir, file, content string) string {
	t.Helper()
	path := filepath.Join(dir, file)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}
