package profiler

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/IshaanNene/wordstalk/internal/clock"
)

// Profiler accumulates the time spent in profiled methods. It is safe for
// concurrent use.
type Profiler struct {
	clock   clock.Clock
	started time.Time

	mu    sync.Mutex
	spent map[string]time.Duration
}

// New creates a Profiler. The run start time is taken from c.
func New(c clock.Clock) *Profiler {
	if c == nil {
		c = clock.System{}
	}
	return &Profiler{
		clock:   c,
		started: c.Now(),
		spent:   make(map[string]time.Duration),
	}
}

// Record adds d to the total for typeName#method.
func (p *Profiler) Record(typeName, method string, d time.Duration) {
	key := typeName + "#" + method
	p.mu.Lock()
	p.spent[key] += d
	p.mu.Unlock()
}

// Elapsed returns the total recorded for typeName#method.
func (p *Profiler) Elapsed(typeName, method string) time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.spent[typeName+"#"+method]
}

// Profile times fn and records it under typeName#method, even when fn panics.
func (p *Profiler) Profile(typeName, method string, fn func()) {
	start := p.clock.Now()
	defer func() {
		p.Record(typeName, method, p.clock.Now().Sub(start))
	}()
	fn()
}

// WriteTo writes a report: a "Run at" line followed by one line per method,
// sorted by key.
func (p *Profiler) WriteTo(w io.Writer) (int64, error) {
	p.mu.Lock()
	keys := make([]string, 0, len(p.spent))
	for k := range p.spent {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	fmt.Fprintf(&b, "Run at %s\n", p.started.Format(time.RFC1123))
	for _, k := range keys {
		fmt.Fprintf(&b, "%s took %s\n", k, FormatDuration(p.spent[k]))
	}
	p.mu.Unlock()
	b.WriteString("\n")

	n, err := io.WriteString(w, b.String())
	return int64(n), err
}

// WriteData appends the report to the file at path, creating it if needed.
func (p *Profiler) WriteData(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening profile output: %w", err)
	}
	if _, err := p.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("writing profile data: %w", err)
	}
	return f.Close()
}

// FormatDuration renders d as minutes, seconds and milliseconds, e.g. "1m2s30ms".
func FormatDuration(d time.Duration) string {
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	d -= s * time.Second
	return fmt.Sprintf("%dm%ds%dms", m, s, d/time.Millisecond)
}
