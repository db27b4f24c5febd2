// Package cmd defines the CLI commands for the websight executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "websight",
		Short: "Breadth-first website crawler and link graph analyzer",
		Long: `websight crawls a website breadth-first from a seed URL, builds the
full internal link graph with referrer and in-degree tracking, and
exports the result as JSON, CSV, and an HTML report.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (defaults and WEBSIGHT_* env vars apply when empty)")

	cmd.AddCommand(newCrawlCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

// Execute runs the CLI.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
