// Package marble provides marble-diagram testing for rx streams.
//
// A marble diagram describes a stream on a timeline of discrete frames:
//
//	"--a--b--|"
//
// # Diagram Syntax
//
//   - '-'   one frame passes with no event
//   - 'a'   any other character is a value occupying one frame
//   - '|'   completion
//   - '#'   error (DefaultError unless another error is configured)
//   - '(ab)' events inside parentheses happen on the same frame; the group
//     still advances time by its full width, parentheses included
//   - '^'   subscription point; frames of a hot diagram are relative to it
//   - '!'   unsubscription point (subscription diagrams only)
//   - ' '   ignored, useful for aligning diagrams
//
// Frame spacing follows the common convention of reactive-stream test
// schedulers, so "--a-----(b|)" means a on frame 2, then b and completion on
// frame 8.
//
// # Virtual Time
//
// Every source in this package schedules its events on a
// testutil.VirtualScheduler. Nothing happens until the scheduler runs, and
// Record drives it to the end, so a test reads top to bottom:
//
//	s := testutil.NewVirtualScheduler()
//	src := marble.Cold(s, "-a-b-|", map[string]string{"a": "1", "b": "2"})
//	marble.Expect(t, s, src.Observable, "-1-2-|", nil)
//
// # Scenarios
//
// Scenario files describe sources, a combinator and an operator chain in
// YAML. Run executes one in virtual time; RunWithGolden snapshots the result
// under testdata/golden for regression comparison. The CLI runs the same
// files.
package marble
