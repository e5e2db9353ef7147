package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/rxflow/internal/marble"
)

// ParseOptions holds flags for the parse command.
type ParseOptions struct {
	*RootOptions
	Subscription bool // parse a subscription diagram instead of an event diagram
}

// ParseResult is the JSON payload of the parse command.
type ParseResult struct {
	Diagram      string                  `json:"diagram"`
	Events       []marble.SnapshotEvent  `json:"events,omitempty"`
	Subscription *marble.SubscriptionLog `json:"subscription,omitempty"`
}

// NewParseCommand creates the parse command.
func NewParseCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ParseOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "parse <diagram>",
		Short: "Parse a marble diagram",
		Long: `Parse a marble diagram and print the events it describes.

Each character of the diagram is one frame: '-' is idle time, a letter or
digit emits a value, '|' completes, '#' errors, and '( )' groups events into
one frame. With --subscription the diagram is read as a subscription log
using '^' and '!'. Diagrams starting with '-' must follow "--" so they are
not read as flags.

Exit codes:
  0 - Diagram is valid
  2 - Diagram is malformed

Examples:
  rxflow parse -- "--a-(bc)-|"
  rxflow parse --subscription -- "--^---!"
  rxflow parse --format json -- "-a-#"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Subscription, "subscription", false, "parse a subscription diagram (^ and !)")

	return cmd
}

func runParse(opts *ParseOptions, diagram string, cmd *cobra.Command) error {
	out := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	result := ParseResult{Diagram: diagram}
	var err error
	if opts.Subscription {
		var log marble.SubscriptionLog
		log, err = marble.ParseSubscription(diagram)
		result.Subscription = &log
	} else {
		var events []marble.Event[string]
		events, err = marble.Parse(diagram)
		result.Events = marble.SnapshotEvents(events)
	}
	if err != nil {
		details := map[string]any{}
		var perr *marble.ParseError
		if errors.As(err, &perr) {
			details["pos"] = perr.Pos
			details["reason"] = perr.Reason
		}
		if outErr := out.Error(CodeInvalidMarble, err.Error(), details); outErr != nil {
			return outErr
		}
		return WrapExitError(ExitCommandError, "invalid diagram", err)
	}

	if opts.Format == "json" {
		return out.Success(result)
	}

	w := cmd.OutOrStdout()
	if result.Subscription != nil {
		fmt.Fprintf(w, "subscribed:   %d\n", result.Subscription.Subscribed)
		if result.Subscription.Unsubscribed == marble.Unsubscribed {
			fmt.Fprintln(w, "unsubscribed: never")
		} else {
			fmt.Fprintf(w, "unsubscribed: %d\n", result.Subscription.Unsubscribed)
		}
		return nil
	}
	if len(result.Events) == 0 {
		fmt.Fprintln(w, "No events.")
		return nil
	}
	writeEvents(cmd, result.Events)
	return nil
}

// writeEvents prints one event per line: frame, kind and payload.
func writeEvents(cmd *cobra.Command, events []marble.SnapshotEvent) {
	w := cmd.OutOrStdout()
	for _, ev := range events {
		switch {
		case ev.Value != "":
			fmt.Fprintf(w, "%4d  %-8s %s\n", ev.Frame, ev.Kind, ev.Value)
		case ev.Error != "":
			fmt.Fprintf(w, "%4d  %-8s %s\n", ev.Frame, ev.Kind, ev.Error)
		default:
			fmt.Fprintf(w, "%4d  %s\n", ev.Frame, ev.Kind)
		}
	}
}
