package engine

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/IshaanNene/wordstalk/internal/clock"
	"github.com/IshaanNene/wordstalk/internal/config"
	"github.com/IshaanNene/wordstalk/internal/types"
	"github.com/IshaanNene/wordstalk/internal/wordcount"
)

// PageParser produces the words and outgoing links of a single page.
// Parse is synchronous and may be slow or fail.
type PageParser interface {
	Parse(url string) (*types.Page, error)
}

// Crawler crawls a set of start pages and ranks the words it finds.
type Crawler interface {
	// Crawl visits startingURLs and everything reachable from them within the
	// configured depth and timeout.
	Crawl(ctx context.Context, startingURLs []string) (*Result, error)

	// MaxParallelism returns the parallelism available on this machine.
	MaxParallelism() int
}

// SeedFailure reports a start page whose subtree was aborted by a parse failure.
//
// URLs stay claimed by the seed that reached them first. Pages the failed seed
// claimed but never finished are therefore also missing from other seeds' results,
// and which pages those are depends on timing. Use fail-fast when that matters.
type SeedFailure struct {
	Seed  string `json:"seed"`
	Error string `json:"error"`
	Err   error  `json:"-"`
}

// Result is the outcome of a crawl.
type Result struct {
	// WordCounts holds the most popular words, in rank order.
	WordCounts wordcount.Ranking `json:"wordCounts"`

	// URLsVisited is the number of distinct URLs claimed during the crawl.
	URLsVisited int `json:"urlsVisited"`

	// Failures lists seeds whose crawl was cut short by a parse failure.
	Failures []SeedFailure `json:"failures,omitempty"`
}

// Stats tracks crawl statistics across all crawls run by an engine.
type Stats struct {
	Crawls          atomic.Int64
	PagesParsed     atomic.Int64
	ParseFailures   atomic.Int64
	Duplicates      atomic.Int64
	SkippedDepth    atomic.Int64
	SkippedDeadline atomic.Int64
	SkippedIgnored  atomic.Int64
	SkippedAborted  atomic.Int64
	LinksScheduled  atomic.Int64
	ActiveWorkers   atomic.Int32
}

// Snapshot returns a copy of stats safe for reading.
func (s *Stats) Snapshot() map[string]int64 {
	return map[string]int64{
		"crawls":           s.Crawls.Load(),
		"pages_parsed":     s.PagesParsed.Load(),
		"parse_failures":   s.ParseFailures.Load(),
		"duplicates":       s.Duplicates.Load(),
		"skipped_depth":    s.SkippedDepth.Load(),
		"skipped_deadline": s.SkippedDeadline.Load(),
		"skipped_ignored":  s.SkippedIgnored.Load(),
		"skipped_aborted":  s.SkippedAborted.Load(),
		"links_scheduled":  s.LinksScheduled.Load(),
		"active_workers":   int64(s.ActiveWorkers.Load()),
	}
}

// Option configures a crawler.
type Option func(*core)

// WithClock sets the time source used for deadlines.
func WithClock(c clock.Clock) Option {
	return func(cr *core) {
		cr.clock = c
	}
}

// WithStats makes the crawler report into an existing Stats.
func WithStats(s *Stats) Option {
	return func(cr *core) {
		cr.stats = s
	}
}

// core holds what both crawler implementations share.
type core struct {
	cfg     config.CrawlConfig
	parser  PageParser
	ignored []*regexp.Regexp
	clock   clock.Clock
	stats   *Stats
	logger  *slog.Logger
}

func newCore(cfg config.CrawlConfig, parser PageParser, logger *slog.Logger, component string, opts []Option) (core, error) {
	if err := config.ValidateCrawl(cfg); err != nil {
		return core{}, err
	}
	if parser == nil {
		return core{}, fmt.Errorf("page parser is required")
	}

	ignored, err := CompilePatterns(cfg.IgnoredURLs)
	if err != nil {
		return core{}, err
	}

	c := core{
		cfg:     cfg,
		parser:  parser,
		ignored: ignored,
		clock:   clock.System{},
		stats:   &Stats{},
		logger:  logger.With("component", component),
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c, nil
}

// CompilePatterns compiles regexes that must match a whole URL.
func CompilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(`^(?:` + p + `)$`)
		if err != nil {
			return nil, fmt.Errorf("%w %q: %v", types.ErrInvalidPattern, p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

func (c *core) isIgnored(url string) bool {
	for _, re := range c.ignored {
		if re.MatchString(url) {
			return true
		}
	}
	return false
}

// MaxParallelism returns the number of CPUs usable by this process.
func (c *core) MaxParallelism() int {
	return runtime.NumCPU()
}

// Stats returns the crawl statistics.
func (c *core) Stats() *Stats {
	return c.stats
}

// logVisited lists every claimed URL at debug level.
func (c *core) logVisited(s *crawlState) {
	if c.logger.Enabled(context.Background(), slog.LevelDebug) {
		c.logger.Debug("visited urls", "urls", s.visited.Export())
	}
}

func (c *core) result(s *crawlState, roots []*root) *Result {
	res := &Result{
		WordCounts:  wordcount.Ranking{},
		URLsVisited: s.visited.Count(),
	}
	for _, r := range roots {
		if r.err != nil {
			res.Failures = append(res.Failures, SeedFailure{Seed: r.seed, Error: r.err.Error(), Err: r.err})
		}
	}
	if s.counts.Len() == 0 {
		return res
	}
	res.WordCounts = wordcount.Top(s.counts.Snapshot(), c.cfg.PopularWordCount)
	return res
}

// Engine is the parallel crawler. Each Crawl call runs a bounded pool of workers
// over a shared Frontier.
type Engine struct {
	core
}

// New creates a parallel Engine.
func New(cfg config.CrawlConfig, parser PageParser, logger *slog.Logger, opts ...Option) (*Engine, error) {
	c, err := newCore(cfg, parser, logger, "engine", opts)
	if err != nil {
		return nil, err
	}
	return &Engine{core: c}, nil
}

// workerCount is min(parallelism hint, MaxParallelism); a hint <= 0 means no cap.
func (e *Engine) workerCount() int {
	n := e.MaxParallelism()
	if e.cfg.Parallelism > 0 && e.cfg.Parallelism < n {
		n = e.cfg.Parallelism
	}
	return max(n, 1)
}

// Crawl implements Crawler.
//
// It returns once every task spawned from startingURLs has finished. Cancelling ctx
// aborts the crawl: tasks not yet started are dropped, running parses complete, and
// an error wrapping types.ErrInterrupted is returned.
func (e *Engine) Crawl(ctx context.Context, startingURLs []string) (*Result, error) {
	start := e.clock.Now()
	state := newCrawlState(start.Add(e.cfg.Timeout))
	workers := e.workerCount()
	e.stats.Crawls.Add(1)

	e.logger.Info("crawl starting",
		"seeds", len(startingURLs),
		"workers", workers,
		"max_depth", e.cfg.MaxDepth,
		"timeout", e.cfg.Timeout,
	)

	frontier := NewFrontier()
	var pending sync.WaitGroup
	roots := make([]*root, 0, len(startingURLs))
	for _, u := range startingURLs {
		r := &root{seed: u, done: pending.Done}
		roots = append(roots, r)
		pending.Add(1)
		frontier.Push(newTask(u, e.cfg.MaxDepth, r, nil))
	}

	sched := NewScheduler(&e.core, state, frontier, e.logger)
	sched.Start(workers)

	quiescent := make(chan struct{})
	go func() {
		pending.Wait()
		close(quiescent)
	}()

	select {
	case <-quiescent:
	case <-ctx.Done():
		e.logger.Warn("crawl interrupted, draining in-flight tasks", "queued", frontier.Len(), "error", ctx.Err())
		state.abort(ctx.Err())
		<-quiescent
	}

	frontier.Close()
	if err := sched.Wait(); err != nil {
		return nil, err
	}

	// An interruption that raced with completion still voids the result.
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrInterrupted, err)
	}
	if state.aborted.Load() {
		return nil, state.abortErr
	}

	res := e.result(state, roots)
	e.logVisited(state)
	e.logger.Info("crawl complete",
		"urls_visited", res.URLsVisited,
		"distinct_words", state.counts.Len(),
		"failed_seeds", len(res.Failures),
		"elapsed", e.clock.Now().Sub(start),
	)
	return res, nil
}
