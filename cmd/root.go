// Package cmd wires the progressd command line interface.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "progressd",
		Short: "Nested fractional progress tracking service.",
		Long: `progressd tracks fractional completion of tasks composed of nested
sub-tasks. Each sub-task reports progress in its own local [0,1] frame while
progressd translates that into a single global fraction via a stack of nested
range frames.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is built-in defaults plus PROGRESSD_* env)")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newDemoCmd())
	return cmd
}

// Execute runs the CLI and exits non-zero on error.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
