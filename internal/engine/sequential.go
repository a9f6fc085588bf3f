package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/IshaanNene/wordstalk/internal/config"
	"github.com/IshaanNene/wordstalk/internal/types"
)

// Sequential is a single-goroutine, depth-first crawler. It applies the same entry
// checks and produces the same result shape as Engine.
type Sequential struct {
	core
}

// NewSequential creates a Sequential crawler.
func NewSequential(cfg config.CrawlConfig, parser PageParser, logger *slog.Logger, opts ...Option) (*Sequential, error) {
	c, err := newCore(cfg, parser, logger, "sequential", opts)
	if err != nil {
		return nil, err
	}
	return &Sequential{core: c}, nil
}

// Crawl implements Crawler.
func (s *Sequential) Crawl(ctx context.Context, startingURLs []string) (*Result, error) {
	start := s.clock.Now()
	state := newCrawlState(start.Add(s.cfg.Timeout))
	s.stats.Crawls.Add(1)

	roots := make([]*root, 0, len(startingURLs))
	for _, u := range startingURLs {
		r := &root{seed: u}
		roots = append(roots, r)
		s.walk(ctx, state, r, u, s.cfg.MaxDepth)

		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", types.ErrInterrupted, err)
		}
		if state.aborted.Load() {
			return nil, state.abortErr
		}
	}

	res := s.result(state, roots)
	s.logVisited(state)
	s.logger.Info("crawl complete",
		"urls_visited", res.URLsVisited,
		"failed_seeds", len(res.Failures),
		"elapsed", s.clock.Now().Sub(start),
	)
	return res, nil
}

func (s *Sequential) walk(ctx context.Context, state *crawlState, r *root, url string, depth int) {
	if ctx.Err() != nil {
		return
	}
	if !s.admit(state, r, url, depth) {
		return
	}

	links, err := s.visit(state, url)
	if err != nil {
		s.fail(state, r, url, err)
		return
	}
	for _, link := range links {
		s.walk(ctx, state, r, link, depth-1)
	}
}
