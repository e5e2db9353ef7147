// Command rxflow parses marble diagrams and runs marble scenarios.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/rxflow/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "rxflow: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
