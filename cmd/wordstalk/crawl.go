package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/wordstalk/internal/clock"
	"github.com/IshaanNene/wordstalk/internal/config"
	"github.com/IshaanNene/wordstalk/internal/engine"
	"github.com/IshaanNene/wordstalk/internal/observability"
	"github.com/IshaanNene/wordstalk/internal/parser"
	"github.com/IshaanNene/wordstalk/internal/pipeline"
	"github.com/IshaanNene/wordstalk/internal/profiler"
	"github.com/IshaanNene/wordstalk/internal/storage"
	"github.com/IshaanNene/wordstalk/internal/types"
)

// crawlCmd creates the "crawl" subcommand.
func crawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [start urls...]",
		Short: "Crawl from the given start pages and rank words",
		Long:  "Crawl from the given start pages (or crawl.start_pages from the config), following links, and report the most popular words.",
		RunE:  runCrawl,
	}

	cmd.Flags().StringVarP(&sitePath, "site", "s", "", "site snapshot file (YAML)")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", `result output path ("-" for stdout)`)
	cmd.Flags().StringVarP(&outputType, "format", "f", "", "output format: json, jsonl, csv, markdown, sqlite, mongodb, multi")
	cmd.Flags().StringVar(&profilePath, "profile", "", "append profiling data to this file")
	cmd.Flags().IntVarP(&depth, "depth", "d", 0, "maximum crawl depth")
	cmd.Flags().StringVarP(&timeout, "timeout", "t", "", "crawl time limit, e.g. 2s")
	cmd.Flags().IntVarP(&popular, "top", "n", 0, "number of popular words to report")
	cmd.Flags().IntVarP(&parallelism, "parallelism", "p", 0, "worker count hint (0 = all CPUs)")
	cmd.Flags().StringVar(&impl, "implementation", "", "crawler implementation: parallel or sequential")
	cmd.Flags().StringSliceVar(&ignoreURLs, "ignore-url", nil, "regex of URLs to skip (full match, repeatable)")
	cmd.Flags().StringSliceVar(&ignoreWords, "ignore-word", nil, "regex of words to drop (full match, repeatable)")
	cmd.Flags().BoolVar(&failFast, "fail-fast", false, "abort the whole crawl on the first parse failure")
	cmd.Flags().BoolVar(&showProgress, "progress", false, "show a progress spinner on stderr")

	return cmd
}

// runCrawl executes the crawl command.
func runCrawl(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := applyCLIOverrides(cmd, cfg, args); err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if len(cfg.Crawl.StartPages) == 0 {
		return types.ErrNoStartPages
	}
	for _, rawURL := range cfg.Crawl.StartPages {
		if err := config.ValidateURL(rawURL); err != nil {
			return fmt.Errorf("invalid start page %q: %w", rawURL, err)
		}
	}
	cfg.Crawl.StartPages = parser.CanonicalizeURLs(cfg.Crawl.StartPages)

	logger, logCloser, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("setup logger: %w", err)
	}
	defer logCloser.Close()

	site, err := loadSite(cfg.Parser, logger)
	if err != nil {
		return err
	}

	var prof *profiler.Profiler
	if cfg.Output.ProfilePath != "" {
		prof = profiler.New(clock.System{})
		defer func() {
			if err := prof.WriteData(cfg.Output.ProfilePath); err != nil {
				logger.Error("failed to write profile data", "error", err)
			}
		}()
	}

	stats := &engine.Stats{}
	crawler, err := buildCrawler(cfg.Crawl, site, prof, logger, engine.WithStats(stats))
	if err != nil {
		return fmt.Errorf("create crawler: %w", err)
	}

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics(stats, logger)
		if err := metrics.StartServer(cfg.Metrics.Port, cfg.Metrics.Path); err != nil {
			logger.Warn("failed to start metrics server", "error", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			metrics.Shutdown(ctx)
		}()
	}

	store, err := storage.New(cfg.Output, logger)
	if err != nil {
		return fmt.Errorf("create storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close storage", "backend", store.Name(), "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting crawl",
		"seeds", cfg.Crawl.StartPages,
		"site_pages", site.Len(),
		"depth", cfg.Crawl.MaxDepth,
		"timeout", cfg.Crawl.Timeout,
		"implementation", cfg.Crawl.Implementation,
		"output", store.Name(),
	)

	var bar *progress
	if showProgress {
		bar = startProgress(os.Stderr, stats, 100*time.Millisecond)
	}

	start := time.Now()
	res, err := crawler.Crawl(ctx, cfg.Crawl.StartPages)
	if bar != nil {
		bar.stop()
	}
	if err != nil {
		if errors.Is(err, types.ErrInterrupted) {
			logger.Warn("crawl interrupted, no result written")
		}
		return err
	}
	elapsed := time.Since(start)

	if err := store.Store(context.Background(), res); err != nil {
		if metrics != nil {
			metrics.StoreFailures.Add(1)
		}
		return fmt.Errorf("store result: %w", err)
	}
	if metrics != nil {
		metrics.ResultsStored.Add(1)
	}

	printSummary(os.Stderr, res, stats, elapsed)
	return nil
}

// loadSite builds the word pipeline and loads the site snapshot.
func loadSite(cfg config.ParserConfig, logger *slog.Logger) (*parser.Site, error) {
	if cfg.Site == "" {
		return nil, fmt.Errorf("parser.site is required: pass --site or set it in the config")
	}
	words, err := pipeline.NewWordPipeline(pipeline.Options{
		IgnoredWords:  cfg.IgnoredWords,
		MinWordLength: cfg.MinWordLength,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("build word pipeline: %w", err)
	}
	return parser.LoadSite(cfg.Site, words, logger)
}

// buildCrawler creates the configured crawler. When prof is non-nil both the parser
// and the crawler are profiled.
func buildCrawler(cfg config.CrawlConfig, pp engine.PageParser, prof *profiler.Profiler, logger *slog.Logger, opts ...engine.Option) (engine.Crawler, error) {
	if prof != nil {
		pp = profiler.Parser(prof, pp)
	}

	var (
		c   engine.Crawler
		err error
	)
	switch cfg.Implementation {
	case config.ImplementationSequential:
		c, err = engine.NewSequential(cfg, pp, logger, opts...)
	default:
		c, err = engine.New(cfg, pp, logger, opts...)
	}
	if err != nil {
		return nil, err
	}

	if prof != nil {
		c = profiler.Crawler(prof, c)
	}
	return c, nil
}

func printSummary(w io.Writer, res *engine.Result, stats *engine.Stats, elapsed time.Duration) {
	snap := stats.Snapshot()
	fmt.Fprintf(w, "\n✅ Crawl complete in %s\n", elapsed.Round(time.Millisecond))
	fmt.Fprintf(w, "   URLs:      %d visited, %v parsed, %v failed\n", res.URLsVisited, snap["pages_parsed"], snap["parse_failures"])
	fmt.Fprintf(w, "   Skipped:   %v duplicate, %v ignored, %v past deadline\n", snap["duplicates"], snap["skipped_ignored"], snap["skipped_deadline"])
	fmt.Fprintf(w, "   Top words: %s\n", strings.Join(res.WordCounts.Words(), ", "))
	for _, f := range res.Failures {
		fmt.Fprintf(w, "   ⚠ seed %s aborted: %s\n", f.Seed, f.Error)
	}
}

// applyCLIOverrides applies command-line flag values to the config. Only flags the
// user set override the config file.
func applyCLIOverrides(cmd *cobra.Command, cfg *config.Config, args []string) error {
	flags := cmd.Flags()

	if len(args) > 0 {
		cfg.Crawl.StartPages = args
	}
	if flags.Changed("site") {
		cfg.Parser.Site = sitePath
	}
	if flags.Changed("output") {
		cfg.Output.Path = outputPath
	}
	if flags.Changed("format") {
		cfg.Output.Type = strings.ToLower(outputType)
	}
	if flags.Changed("profile") {
		cfg.Output.ProfilePath = profilePath
	}
	if flags.Changed("depth") {
		cfg.Crawl.MaxDepth = depth
	}
	if flags.Changed("timeout") {
		d, err := time.ParseDuration(timeout)
		if err != nil {
			return fmt.Errorf("invalid --timeout: %w", err)
		}
		cfg.Crawl.Timeout = d
	}
	if flags.Changed("top") {
		cfg.Crawl.PopularWordCount = popular
	}
	if flags.Changed("parallelism") {
		cfg.Crawl.Parallelism = parallelism
	}
	if flags.Changed("implementation") {
		cfg.Crawl.Implementation = strings.ToLower(impl)
	}
	if flags.Changed("ignore-url") {
		cfg.Crawl.IgnoredURLs = append(cfg.Crawl.IgnoredURLs, ignoreURLs...)
	}
	if flags.Changed("ignore-word") {
		cfg.Parser.IgnoredWords = append(cfg.Parser.IgnoredWords, ignoreWords...)
	}
	if flags.Changed("fail-fast") {
		cfg.Crawl.FailFast = failFast
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	return nil
}
