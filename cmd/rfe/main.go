package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/rfe/internal/cli"
	"github.com/example/rfe/internal/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "rfe",
		Short:   "rfe - RFE workflow phase orchestration",
		Version: version.String(),
		Long: `rfe drives feature requests through specify, plan, and tasks phases.
Each phase fans out agent sessions per persona; the phase itself is derived
from the artifacts the sessions leave in the workflow workspace.`,
	}

	// Add subcommands
	rootCmd.AddCommand(cli.WorkflowCmd())
	rootCmd.AddCommand(cli.SessionCmd())
	rootCmd.AddCommand(cli.WatchCmd())
	rootCmd.AddCommand(cli.PersonasCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
