package engine

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Scheduler runs a fixed number of worker goroutines that pop tasks from the
// frontier and process them.
//
// A task never blocks on its children. It pushes them and returns, and the last
// descendant to finish completes it. Workers therefore stay busy however deep the
// recursion goes, and the worker count bounds the parallelism.
type Scheduler struct {
	core     *core
	state    *crawlState
	frontier *Frontier
	logger   *slog.Logger

	g      *errgroup.Group
	cancel context.CancelFunc
}

// NewScheduler creates a new Scheduler for one crawl.
func NewScheduler(c *core, state *crawlState, frontier *Frontier, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		core:     c,
		state:    state,
		frontier: frontier,
		logger:   logger.With("component", "scheduler"),
	}
}

// Start launches the worker pool.
func (s *Scheduler) Start(workers int) {
	s.logger.Debug("starting worker pool", "workers", workers)

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	g, gctx := errgroup.WithContext(ctx)
	s.g = g

	for i := range workers {
		g.Go(func() error {
			return s.worker(gctx, i)
		})
	}
}

// Wait blocks until all workers have exited. Workers exit once the frontier is closed
// and empty.
func (s *Scheduler) Wait() error {
	err := s.g.Wait()
	s.cancel()
	return err
}

// worker is a single crawl worker goroutine.
func (s *Scheduler) worker(ctx context.Context, id int) error {
	logger := s.logger.With("worker_id", id)
	processed := 0

	for {
		t := s.frontier.Pop(ctx)
		if t == nil {
			logger.Debug("worker exiting", "processed", processed)
			return nil
		}

		s.core.stats.ActiveWorkers.Add(1)
		s.process(t)
		s.core.stats.ActiveWorkers.Add(-1)
		processed++
	}
}

// process runs one task: entry checks, parse, merge, then child scheduling.
func (s *Scheduler) process(t *task) {
	defer t.finish()

	if !s.core.admit(s.state, t.root, t.url, t.depth) {
		return
	}

	links, err := s.core.visit(s.state, t.url)
	if err != nil {
		s.core.fail(s.state, t.root, t.url, err)
		return
	}

	// Children at depth 0 would end at their entry check.
	if t.depth <= 1 {
		s.core.stats.SkippedDepth.Add(int64(len(links)))
		return
	}

	t.pending.Add(int32(len(links)))
	for _, link := range links {
		child := newTask(link, t.depth-1, t.root, t)
		if !s.frontier.Push(child) {
			child.finish()
			continue
		}
		s.core.stats.LinksScheduled.Add(1)
	}
}
