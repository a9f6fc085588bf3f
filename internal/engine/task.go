package engine

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc/panics"

	"github.com/IshaanNene/wordstalk/internal/types"
	"github.com/IshaanNene/wordstalk/internal/wordcount"
)

// crawlState is shared by every task spawned from one Crawl call.
type crawlState struct {
	deadline time.Time
	visited  *VisitTracker
	counts   *wordcount.Accumulator

	aborted   atomic.Bool
	abortOnce sync.Once
	abortErr  error
}

func newCrawlState(deadline time.Time) *crawlState {
	return &crawlState{
		deadline: deadline,
		visited:  NewVisitTracker(),
		counts:   wordcount.NewAccumulator(),
	}
}

// abort stops every task that has not started yet. The first error wins.
func (s *crawlState) abort(err error) {
	s.abortOnce.Do(func() {
		s.abortErr = err
		s.aborted.Store(true)
	})
}

// root is the failure boundary for everything reachable from one seed.
type root struct {
	seed string
	done func()

	failedFlag atomic.Bool
	once       sync.Once
	err        error
}

// fail records err as the seed's failure. It reports whether err was the first.
func (r *root) fail(err error) bool {
	first := false
	r.once.Do(func() {
		r.err = err
		r.failedFlag.Store(true)
		first = true
	})
	return first
}

func (r *root) failed() bool { return r.failedFlag.Load() }

// task is one URL at one remaining depth.
//
// pending counts the task's own body plus every child subtree that has not finished.
// The task, and transitively its ancestors, complete when it reaches zero, so the
// engine only has to wait on the roots.
type task struct {
	url     string
	depth   int
	root    *root
	parent  *task
	pending atomic.Int32
}

func newTask(url string, depth int, r *root, parent *task) *task {
	t := &task{url: url, depth: depth, root: r, parent: parent}
	t.pending.Store(1)
	return t
}

// finish releases one unit of pending work and propagates completion upwards.
func (t *task) finish() {
	for cur := t; cur != nil; cur = cur.parent {
		if cur.pending.Add(-1) != 0 {
			return
		}
		if cur.parent == nil && cur.root.done != nil {
			cur.root.done()
		}
	}
}

// admit runs the entry checks and claims url. A false result means the task must
// end without side effects.
func (c *core) admit(s *crawlState, r *root, url string, depth int) bool {
	switch {
	case depth <= 0:
		c.stats.SkippedDepth.Add(1)
		return false
	case !c.clock.Now().Before(s.deadline):
		c.stats.SkippedDeadline.Add(1)
		return false
	case s.aborted.Load() || r.failed():
		c.stats.SkippedAborted.Add(1)
		return false
	case c.isIgnored(url):
		c.stats.SkippedIgnored.Add(1)
		return false
	case !s.visited.Claim(url):
		c.stats.Duplicates.Add(1)
		return false
	}
	return true
}

// visit parses a claimed url and merges its words. It returns the page's links.
func (c *core) visit(s *crawlState, url string) ([]string, error) {
	var (
		page    *types.Page
		err     error
		catcher panics.Catcher
	)
	catcher.Try(func() {
		page, err = c.parser.Parse(url)
	})
	if rec := catcher.Recovered(); rec != nil {
		err = rec.AsError()
	}
	if err == nil && page == nil {
		err = errors.New("parser returned no page")
	}
	if err != nil {
		c.stats.ParseFailures.Add(1)
		var pe *types.ParseError
		if !errors.As(err, &pe) {
			err = &types.ParseError{URL: url, Err: err}
		}
		return nil, err
	}

	s.counts.Merge(page.WordCounts)
	c.stats.PagesParsed.Add(1)
	c.logger.Debug("page parsed",
		"url", url,
		"distinct_words", len(page.WordCounts),
		"words", page.TotalWords(),
		"links", len(page.Links),
		"parse_duration", page.ParseDuration,
	)
	return page.Links, nil
}

// fail records a parse failure against the task's seed, and against the whole crawl
// when fail-fast is on.
func (c *core) fail(s *crawlState, r *root, url string, err error) {
	if r.fail(err) {
		c.logger.Warn("seed aborted", "seed", r.seed, "url", url, "error", err)
	}
	if c.cfg.FailFast {
		s.abort(&types.SeedError{Seed: r.seed, Err: err})
	}
}
