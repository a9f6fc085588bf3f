// Package wordstalk provides a public SDK for embedding WordStalk as a library.
//
// Example usage:
//
//	crawler, err := wordstalk.NewCrawler(
//	    wordstalk.WithMaxDepth(3),
//	    wordstalk.WithTimeout(5*time.Second),
//	    wordstalk.WithIgnoredWords("the", "and", "of"),
//	)
//	defer crawler.Close()
//
//	res, err := crawler.CrawlFile(ctx, "site.yaml", "https://example.com/")
//	for _, wc := range res.WordCounts {
//	    fmt.Println(wc.Word, wc.Count)
//	}
package wordstalk

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/IshaanNene/wordstalk/internal/config"
	"github.com/IshaanNene/wordstalk/internal/engine"
	"github.com/IshaanNene/wordstalk/internal/observability"
	"github.com/IshaanNene/wordstalk/internal/parser"
	"github.com/IshaanNene/wordstalk/internal/pipeline"
	"github.com/IshaanNene/wordstalk/internal/types"
)

// Re-exported types, so callers never import internal packages.
type (
	Result       = engine.Result
	SeedFailure  = engine.SeedFailure
	PageParser   = engine.PageParser
	Page         = types.Page
	Snapshot     = parser.Snapshot
	SnapshotPage = parser.SnapshotPage
)

// Crawler is the high-level API for using WordStalk as a library.
type Crawler struct {
	cfg       *config.Config
	logger    *slog.Logger
	logCloser io.Closer
}

// Option configures a Crawler.
type Option func(*config.Config)

// WithMaxDepth sets the maximum crawl depth.
func WithMaxDepth(depth int) Option {
	return func(c *config.Config) { c.Crawl.MaxDepth = depth }
}

// WithTimeout sets the crawl time limit.
func WithTimeout(d time.Duration) Option {
	return func(c *config.Config) { c.Crawl.Timeout = d }
}

// WithPopularWordCount sets how many words the result ranks.
func WithPopularWordCount(n int) Option {
	return func(c *config.Config) { c.Crawl.PopularWordCount = n }
}

// WithParallelism caps the number of workers.
func WithParallelism(n int) Option {
	return func(c *config.Config) { c.Crawl.Parallelism = n }
}

// WithIgnoredURLs skips URLs that fully match any of the patterns.
func WithIgnoredURLs(patterns ...string) Option {
	return func(c *config.Config) { c.Crawl.IgnoredURLs = append(c.Crawl.IgnoredURLs, patterns...) }
}

// WithIgnoredWords drops words that fully match any of the patterns.
func WithIgnoredWords(patterns ...string) Option {
	return func(c *config.Config) { c.Parser.IgnoredWords = append(c.Parser.IgnoredWords, patterns...) }
}

// WithMinWordLength drops words shorter than n runes.
func WithMinWordLength(n int) Option {
	return func(c *config.Config) { c.Parser.MinWordLength = n }
}

// WithSequential uses the single-goroutine crawler.
func WithSequential() Option {
	return func(c *config.Config) { c.Crawl.Implementation = config.ImplementationSequential }
}

// WithFailFast aborts the whole crawl on the first parse failure.
func WithFailFast() Option {
	return func(c *config.Config) { c.Crawl.FailFast = true }
}

// WithVerbose enables debug-level logging.
func WithVerbose() Option {
	return func(c *config.Config) { c.Logging.Level = "debug" }
}

// WithLogLevel sets the minimum log level: debug, info, warn or error.
func WithLogLevel(level string) Option {
	return func(c *config.Config) { c.Logging.Level = level }
}

// WithLogFormat selects "text" or "json" log output.
func WithLogFormat(format string) Option {
	return func(c *config.Config) { c.Logging.Format = format }
}

// WithLogOutput sends logs to "stderr", "stdout" or a rotated file at path.
func WithLogOutput(output string) Option {
	return func(c *config.Config) { c.Logging.Output = output }
}

// NewCrawler creates a new Crawler with the given options. Close releases the log
// file, if any.
func NewCrawler(opts ...Option) (*Crawler, error) {
	cfg := config.DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	logger, closer, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("setup logger: %w", err)
	}
	return &Crawler{cfg: cfg, logger: logger, logCloser: closer}, nil
}

// Close releases resources held by the Crawler.
func (c *Crawler) Close() error {
	return c.logCloser.Close()
}

// Crawl crawls urls using pp to parse pages.
func (c *Crawler) Crawl(ctx context.Context, pp PageParser, urls ...string) (*Result, error) {
	if len(urls) == 0 {
		return nil, types.ErrNoStartPages
	}

	var (
		cr  engine.Crawler
		err error
	)
	if c.cfg.Crawl.Implementation == config.ImplementationSequential {
		cr, err = engine.NewSequential(c.cfg.Crawl, pp, c.logger)
	} else {
		cr, err = engine.New(c.cfg.Crawl, pp, c.logger)
	}
	if err != nil {
		return nil, fmt.Errorf("create crawler: %w", err)
	}
	return cr.Crawl(ctx, urls)
}

// CrawlSnapshot crawls urls over an in-memory site snapshot.
func (c *Crawler) CrawlSnapshot(ctx context.Context, snap Snapshot, urls ...string) (*Result, error) {
	words, err := c.wordPipeline()
	if err != nil {
		return nil, err
	}
	site, err := parser.NewSite(snap, words, c.logger)
	if err != nil {
		return nil, err
	}
	return c.Crawl(ctx, site, parser.CanonicalizeURLs(urls)...)
}

// CrawlFile crawls urls over the YAML site snapshot at path.
func (c *Crawler) CrawlFile(ctx context.Context, path string, urls ...string) (*Result, error) {
	words, err := c.wordPipeline()
	if err != nil {
		return nil, err
	}
	site, err := parser.LoadSite(path, words, c.logger)
	if err != nil {
		return nil, err
	}
	return c.Crawl(ctx, site, parser.CanonicalizeURLs(urls)...)
}

func (c *Crawler) wordPipeline() (*pipeline.Pipeline, error) {
	return pipeline.NewWordPipeline(pipeline.Options{
		IgnoredWords:  c.cfg.Parser.IgnoredWords,
		MinWordLength: c.cfg.Parser.MinWordLength,
	}, c.logger)
}
