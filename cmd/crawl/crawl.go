// Package crawl implements the crawl command: it runs the spider from the
// given seed URLs and prints a summary of the run.
package crawl

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/gospider/internal/config"
	"github.com/jonesrussell/gospider/internal/logger"
	"github.com/jonesrussell/gospider/internal/spider"
)

// Command returns the crawl command for use in the root command.
func Command() *cobra.Command {
	var (
		maxPages int64
		maxDepth int
		strategy string
		query    string
	)

	cmd := &cobra.Command{
		Use:   "crawl [seed-url...]",
		Short: "Crawl from the given seed URLs",
		Long: `This command crawls from one or more seed URLs until the frontier is
exhausted or a budget, relevance, or adaptive stop condition ends the run.

Flags override the corresponding settings from the configuration file.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			debug, _ := cmd.Flags().GetBool("debug")

			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			if debug {
				cfg.Log.Level = logger.DebugLevel
			}
			if cmd.Flags().Changed("max-pages") {
				cfg.Budget.MaxPages = maxPages
			}
			if cmd.Flags().Changed("max-depth") {
				cfg.Budget.MaxDepth = maxDepth
			}
			if cmd.Flags().Changed("strategy") {
				cfg.Strategy = strategy
			}
			if cmd.Flags().Changed("query") {
				cfg.QueryAware.Enabled = true
				cfg.QueryAware.TargetQuery = query
			}

			log, err := logger.New(&cfg.Log)
			if err != nil {
				return fmt.Errorf("failed to create logger: %w", err)
			}

			s, err := spider.New(cfg, log)
			if err != nil {
				return fmt.Errorf("failed to create spider: %w", err)
			}

			// SIGINT/SIGTERM cancel the context; the crawl loop observes
			// the cancellation at its next iteration boundary.
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			result, err := s.Crawl(ctx, args)
			if err != nil {
				return fmt.Errorf("crawl failed: %w", err)
			}

			renderResult(result)
			return nil
		},
	}

	cmd.Flags().Int64Var(&maxPages, "max-pages", 0,
		"Override the budget max_pages setting (0 means unlimited)")
	cmd.Flags().IntVar(&maxDepth, "max-depth", 0,
		"Override the budget max_depth setting (0 means unlimited)")
	cmd.Flags().StringVar(&strategy, "strategy", "",
		"Traversal strategy: breadth_first, depth_first, or best_first")
	cmd.Flags().StringVar(&query, "query", "",
		"Enable query-aware scoring with the given target query")

	return cmd
}

// renderResult formats and displays the crawl summary in a table.
func renderResult(result *spider.Result) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)

	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRow(table.Row{"Crawl ID", result.CrawlID.String()})
	t.AppendRow(table.Row{"Pages crawled", result.PagesCrawled})
	t.AppendRow(table.Row{"Pages failed", result.PagesFailed})
	t.AppendRow(table.Row{"Duration", result.Duration.Round(time.Millisecond)})
	t.AppendRow(table.Row{"Pages/sec", fmt.Sprintf("%.2f", result.Performance.PagesPerSecond)})
	t.AppendRow(table.Row{"Error rate", fmt.Sprintf("%.1f%%", result.Performance.ErrorRate*100)})
	t.AppendRow(table.Row{"Stop reason", result.StopReason})
	t.AppendRow(table.Row{"Domains", strings.Join(result.Domains, ", ")})

	t.Render()
}
