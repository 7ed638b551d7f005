// Package cmd implements the command-line interface for gospider.
// It provides the root command and the crawl subcommand.
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/gospider/cmd/crawl"
)

// version is overridable at build time with -ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "gospider",
	Short: "A query-aware deep crawler",
	Long: `A deep crawler with priority-based frontier scheduling, crawl budgets,
query-aware relevance scoring, and adaptive stopping.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default is ./gospider.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("gospider version %s\n", version)
		},
	})

	rootCmd.AddCommand(crawl.Command())
}
