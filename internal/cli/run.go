package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/rxflow/internal/marble"
)

// RunResult is the JSON payload of the run command.
type RunResult struct {
	Scenario      string                 `json:"scenario"`
	Pass          bool                   `json:"pass"`
	Marble        string                 `json:"marble"`
	Events        []marble.SnapshotEvent `json:"events"`
	Subscriptions map[string][]string    `json:"subscriptions"`
	Errors        []string               `json:"errors,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run one marble scenario",
		Long: `Run a single marble scenario in virtual time and print what the
result stream delivered: its events, the rendered marble diagram and
the subscription log of every source.

With --verbose, "log" operator steps and run progress are written to
stderr as structured log records.

Exit codes:
  0 - Scenario passed
  1 - Output or subscriptions differ from the expectation
  2 - Command error (missing file, malformed scenario)

Examples:
  rxflow run ./scenarios/take_two.yaml
  rxflow run ./scenarios/debounce_quiet.yaml --verbose
  rxflow run ./scenarios/zip.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarioFile(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runScenarioFile(opts *RootOptions, path string, cmd *cobra.Command) error {
	runID := generatorOrDefault(opts.IDs).Generate()
	logger := newLogger(cmd, opts.Verbose).With("run_id", runID)
	out := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
		RunID:     runID,
	}

	logger.Debug("loading scenario", "path", path)
	scenario, err := marble.LoadScenario(path)
	if err != nil {
		if outErr := out.Error(CodeInvalidScenario, err.Error(), nil); outErr != nil {
			return outErr
		}
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	result, err := marble.Run(scenario, marble.WithLogger(logger))
	if err != nil {
		if outErr := out.Error(CodeInvalidScenario, err.Error(), nil); outErr != nil {
			return outErr
		}
		return WrapExitError(ExitCommandError, "failed to run scenario", err)
	}
	logger.Debug("scenario finished", "scenario", scenario.Name, "events", len(result.Events), "pass", result.Pass)

	snap := marble.NewSnapshot(scenario.Name, result)
	rr := RunResult{
		Scenario:      scenario.Name,
		Pass:          result.Pass,
		Marble:        result.Marble,
		Events:        snap.Events,
		Subscriptions: snap.Subscriptions,
		Errors:        result.Errors,
	}

	if opts.Format == "json" {
		if rr.Pass {
			if err := out.Success(rr); err != nil {
				return err
			}
		} else if err := out.encode(CLIResponse{
			Status: "error",
			Data:   rr,
			Error:  &CLIError{Code: CodeScenarioFailed, Message: fmt.Sprintf("scenario %s failed", rr.Scenario)},
			RunID:  runID,
		}); err != nil {
			return err
		}
	} else {
		writeRunText(cmd, rr)
	}

	if !rr.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", rr.Scenario))
	}
	return nil
}

func writeRunText(cmd *cobra.Command, rr RunResult) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Scenario: %s\n", rr.Scenario)
	fmt.Fprintf(w, "Marble:   %s\n", rr.Marble)
	fmt.Fprintln(w, "Events:")
	writeEvents(cmd, rr.Events)
	if len(rr.Subscriptions) > 0 {
		fmt.Fprintln(w, "Subscriptions:")
		for _, name := range sortedNames(rr.Subscriptions) {
			for _, d := range rr.Subscriptions[name] {
				fmt.Fprintf(w, "  %-8s %s\n", name, d)
			}
		}
	}
	if rr.Pass {
		fmt.Fprintln(w, "✓ passed")
		return
	}
	fmt.Fprintln(w, "✗ failed")
	for _, e := range rr.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
}

// newLogger writes text records to the command's stderr, at debug level when
// verbose.
func newLogger(cmd *cobra.Command, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}
