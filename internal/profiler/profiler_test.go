package profiler

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/IshaanNene/wordstalk/internal/clock"
	"github.com/IshaanNene/wordstalk/internal/engine"
	"github.com/IshaanNene/wordstalk/internal/types"
)

var errCrawl = errors.New("crawl failed")

type stubCrawler struct {
	res *engine.Result
	err error
}

func (s *stubCrawler) Crawl(context.Context, []string) (*engine.Result, error) { return s.res, s.err }
func (s *stubCrawler) MaxParallelism() int                                      { return 7 }

type stubParser struct {
	panicWith string
}

func (s *stubParser) Parse(url string) (*types.Page, error) {
	if s.panicWith != "" {
		panic(s.panicWith)
	}
	return types.NewPage(url), nil
}

func newFakeClock() *clock.Fake {
	return clock.NewFake(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
}

func TestCrawlerRecordsDuration(t *testing.T) {
	fake := newFakeClock()
	p := New(fake)
	fake.SetStep(250 * time.Millisecond)

	want := &engine.Result{URLsVisited: 3}
	c := Crawler(p, &stubCrawler{res: want})

	got, err := c.Crawl(context.Background(), []string{"a"})
	if err != nil || got != want {
		t.Fatalf("expected result to pass through, got %v, %v", got, err)
	}
	if d := p.Elapsed("profiler.stubCrawler", "Crawl"); d != 250*time.Millisecond {
		t.Errorf("expected 250ms recorded, got %v", d)
	}

	if c.MaxParallelism() != 7 {
		t.Errorf("MaxParallelism should pass through")
	}
	if d := p.Elapsed("profiler.stubCrawler", "MaxParallelism"); d != 0 {
		t.Errorf("MaxParallelism should not be profiled, got %v", d)
	}
}

func TestCrawlerPreservesErrorIdentity(t *testing.T) {
	fake := newFakeClock()
	p := New(fake)
	fake.SetStep(time.Second)

	c := Crawler(p, &stubCrawler{err: errCrawl})
	_, err := c.Crawl(context.Background(), nil)
	if err != errCrawl {
		t.Fatalf("expected the original error value, got %v", err)
	}
	if d := p.Elapsed("profiler.stubCrawler", "Crawl"); d != time.Second {
		t.Errorf("failed calls should still be recorded, got %v", d)
	}
}

func TestParserRecordsPanics(t *testing.T) {
	fake := newFakeClock()
	p := New(fake)
	fake.SetStep(10 * time.Millisecond)

	pp := Parser(p, &stubParser{panicWith: "bad page"})
	func() {
		defer func() {
			if r := recover(); r != "bad page" {
				t.Errorf("expected panic to be re-raised, got %v", r)
			}
		}()
		pp.Parse("https://example.com/")
	}()

	if d := p.Elapsed("profiler.stubParser", "Parse"); d != 10*time.Millisecond {
		t.Errorf("panicking calls should still be recorded, got %v", d)
	}
}

func TestParserAccumulates(t *testing.T) {
	fake := newFakeClock()
	p := New(fake)
	fake.SetStep(time.Millisecond)

	pp := Parser(p, &stubParser{})
	for i := 0; i < 5; i++ {
		page, err := pp.Parse("u")
		if err != nil || page.URL != "u" {
			t.Fatalf("unexpected parse result: %v, %v", page, err)
		}
	}
	if d := p.Elapsed("profiler.stubParser", "Parse"); d != 5*time.Millisecond {
		t.Errorf("expected 5ms total, got %v", d)
	}
}

func TestWriteTo(t *testing.T) {
	p := New(newFakeClock())
	p.Record("engine.Engine", "Crawl", 61*time.Second+5*time.Millisecond)
	p.Record("parser.Site", "Parse", 1500*time.Millisecond)

	var buf bytes.Buffer
	if _, err := p.WriteTo(&buf); err != nil {
		t.Fatalf("write: %v", err)
	}

	want := "Run at Fri, 01 Mar 2024 12:00:00 UTC\n" +
		"engine.Engine#Crawl took 1m1s5ms\n" +
		"parser.Site#Parse took 0m1s500ms\n\n"
	if buf.String() != want {
		t.Errorf("unexpected report:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestWriteDataAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.txt")
	p := New(newFakeClock())
	p.Record("engine.Engine", "Crawl", time.Second)

	for i := 0; i < 2; i++ {
		if err := p.WriteData(path); err != nil {
			t.Fatalf("write data: %v", err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(string(data), "Run at"); n != 2 {
		t.Errorf("expected two appended reports, got %d", n)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0m0s0ms"},
		{999 * time.Microsecond, "0m0s0ms"},
		{2*time.Minute + 3*time.Second + 4*time.Millisecond, "2m3s4ms"},
		{90 * time.Minute, "90m0s0ms"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.d); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q; want %q", tt.d, got, tt.want)
		}
	}
}
