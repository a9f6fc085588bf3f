package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/wordstalk/internal/config"
)

var (
	cfgFile      string
	verbose      bool
	sitePath     string
	outputPath   string
	outputType   string
	profilePath  string
	depth        int
	timeout      string
	popular      int
	parallelism  int
	impl         string
	ignoreURLs   []string
	ignoreWords  []string
	failFast     bool
	showProgress bool
	apiPort      int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "wordstalk",
		Short: "WordStalk: a bounded, concurrent word-frequency crawler",
		Long: `WordStalk crawls a site from one or more start pages, following links up to a
maximum depth within a time limit, and reports the most popular words it found.

Features:
  • Parallel crawling on a bounded worker pool, each URL visited once
  • Depth limit, wall-clock deadline and URL ignore patterns
  • Word normalization: case folding, minimum length, ignored words
  • JSON, JSONL, CSV and MongoDB output
  • Method profiling and a Prometheus metrics endpoint`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(crawlCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(configCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("WordStalk %s\n", config.Version)
		},
	}
}

// configCmd creates the "config" subcommand for inspecting configuration.
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			fmt.Printf("Crawl:\n")
			fmt.Printf("  Start Pages:        %s\n", strings.Join(cfg.Crawl.StartPages, ", "))
			fmt.Printf("  Max Depth:          %d\n", cfg.Crawl.MaxDepth)
			fmt.Printf("  Timeout:            %s\n", cfg.Crawl.Timeout)
			fmt.Printf("  Popular Word Count: %d\n", cfg.Crawl.PopularWordCount)
			fmt.Printf("  Ignored URLs:       %d patterns\n", len(cfg.Crawl.IgnoredURLs))
			fmt.Printf("  Parallelism:        %d\n", cfg.Crawl.Parallelism)
			fmt.Printf("  Implementation:     %s\n", cfg.Crawl.Implementation)
			fmt.Printf("  Fail Fast:          %v\n", cfg.Crawl.FailFast)
			fmt.Printf("\nParser:\n")
			fmt.Printf("  Site:               %s\n", cfg.Parser.Site)
			fmt.Printf("  Ignored Words:      %d patterns\n", len(cfg.Parser.IgnoredWords))
			fmt.Printf("  Min Word Length:    %d\n", cfg.Parser.MinWordLength)
			fmt.Printf("\nOutput:\n")
			fmt.Printf("  Type:               %s\n", cfg.Output.Type)
			fmt.Printf("  Path:               %s\n", cfg.Output.Path)
			fmt.Printf("  Profile Path:       %s\n", cfg.Output.ProfilePath)
			fmt.Printf("\nLogging:\n")
			fmt.Printf("  Level:              %s\n", cfg.Logging.Level)
			fmt.Printf("  Format:             %s\n", cfg.Logging.Format)
			fmt.Printf("  Output:             %s\n", cfg.Logging.Output)
			fmt.Printf("\nMetrics:\n")
			fmt.Printf("  Enabled:            %v\n", cfg.Metrics.Enabled)
			fmt.Printf("  Port:               %d\n", cfg.Metrics.Port)
			return nil
		},
	}
}
