package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/nao1215/markdown"

	"github.com/IshaanNene/wordstalk/internal/engine"
	"github.com/IshaanNene/wordstalk/internal/types"
)

// MarkdownStorage renders each result as a Markdown report with a ranked word
// table. Like JSONStorage, each Store replaces the previous report.
type MarkdownStorage struct {
	path   string
	now    func() time.Time
	mu     sync.Mutex
	count  int
	logger *slog.Logger
}

// NewMarkdownStorage creates a Markdown storage writing to path, or to stdout.
func NewMarkdownStorage(path string, logger *slog.Logger) (*MarkdownStorage, error) {
	return &MarkdownStorage{
		path:   path,
		now:    time.Now,
		logger: logger.With("component", "markdown_storage"),
	}, nil
}

func (s *MarkdownStorage) Name() string { return "markdown" }

func (s *MarkdownStorage) Store(_ context.Context, res *engine.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, closeFn, err := openOutput(s.path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY)
	if err != nil {
		return &types.StorageError{Backend: s.Name(), Err: err}
	}

	md := markdown.NewMarkdown(w)
	writeReport(md, res, s.now().UTC())
	if err := md.Build(); err != nil {
		closeFn()
		return &types.StorageError{Backend: s.Name(), Err: fmt.Errorf("render markdown: %w", err)}
	}
	if err := closeFn(); err != nil {
		return &types.StorageError{Backend: s.Name(), Err: err}
	}

	s.count++
	return nil
}

func writeReport(md *markdown.Markdown, res *engine.Result, at time.Time) {
	md.H1("Word Count Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Crawled At", at.Format("2006-01-02 15:04:05 MST")},
			{"URLs Visited", strconv.Itoa(res.URLsVisited)},
			{"Distinct Words Reported", strconv.Itoa(len(res.WordCounts))},
		},
	})
	md.PlainText("")

	md.H2("Popular Words")
	md.PlainText("")
	if len(res.WordCounts) == 0 {
		md.PlainText("No words were counted.")
	} else {
		rows := make([][]string, 0, len(res.WordCounts))
		for i, wc := range res.WordCounts {
			rows = append(rows, []string{strconv.Itoa(i + 1), "`" + wc.Word + "`", strconv.Itoa(wc.Count)})
		}
		md.Table(markdown.TableSet{
			Header: []string{"Rank", "Word", "Count"},
			Rows:   rows,
		})
	}
	md.PlainText("")

	if len(res.Failures) > 0 {
		md.H2("Failed Seeds")
		md.PlainText("")
		items := make([]string, 0, len(res.Failures))
		for _, f := range res.Failures {
			items = append(items, f.Seed+": "+f.Error)
		}
		md.BulletList(items...)
		md.PlainText("")
	}
}

func (s *MarkdownStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !isStdout(s.path) {
		s.logger.Info("markdown report written", "path", s.path, "results", s.count)
	}
	return nil
}
