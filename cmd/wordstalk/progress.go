package main

import (
	"io"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/IshaanNene/wordstalk/internal/engine"
)

// progress shows a spinner with the number of pages parsed so far.
type progress struct {
	bar  *progressbar.ProgressBar
	done chan struct{}
	exit chan struct{}
}

// startProgress polls stats every interval until stop is called.
func startProgress(w io.Writer, stats *engine.Stats, interval time.Duration) *progress {
	p := &progress{
		bar: progressbar.NewOptions(-1,
			progressbar.OptionSetWriter(w),
			progressbar.OptionSetDescription("crawling"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("pages"),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionClearOnFinish(),
		),
		done: make(chan struct{}),
		exit: make(chan struct{}),
	}

	go func() {
		defer close(p.exit)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-p.done:
				return
			case <-ticker.C:
				_ = p.bar.Set(int(stats.PagesParsed.Load()))
			}
		}
	}()
	return p
}

// stop halts polling and clears the spinner line.
func (p *progress) stop() {
	close(p.done)
	<-p.exit
	_ = p.bar.Finish()
}
