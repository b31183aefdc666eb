// Package cmd defines and implements the CLI commands for the depcrawl
// executable.
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
		Use:   "depcrawl",
		Short: "Crawls documentation pages into a dataset of API change records",
		Long: `depcrawl reads a manifest of documentation URLs, asks a language model
to extract structured API change records from each page, and accumulates
the results into a CSV artifact. Completed work is persisted
incrementally, so an interrupted run picks up where it left off.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (defaults apply when omitted)")
	cmd.AddCommand(newCrawlCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
