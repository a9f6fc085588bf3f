package parser

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/IshaanNene/wordstalk/internal/pipeline"
	"github.com/IshaanNene/wordstalk/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

const testSite = `
pages:
  - url: https://Example.com:443/
    text: "The quick brown fox. The lazy dog!"
    links:
      - /about
      - about/
      - "#top"
      - mailto:someone@example.com
      - https://other.example/page?b=2&a=1#frag
  - url: https://example.com/about
    text: "About the fox"
    latency: 1ms
  - url: https://example.com/broken
    error: "upstream exploded"
`

func newTestSite(t *testing.T, p *pipeline.Pipeline) *Site {
	t.Helper()
	site, err := ParseSite([]byte(testSite), p, testLogger)
	if err != nil {
		t.Fatalf("parse site: %v", err)
	}
	return site
}

// --- Site Tests ---

func TestSiteParse(t *testing.T) {
	p, err := pipeline.NewWordPipeline(pipeline.Options{IgnoredWords: []string{"the"}}, testLogger)
	if err != nil {
		t.Fatalf("pipeline: %v", err)
	}
	site := newTestSite(t, p)
	if site.Len() != 3 {
		t.Fatalf("expected 3 pages, got %d", site.Len())
	}

	page, err := site.Parse("https://example.com")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	want := map[string]int{"quick": 1, "brown": 1, "fox": 1, "lazy": 1, "dog": 1}
	if !reflect.DeepEqual(page.WordCounts, want) {
		t.Errorf("expected %v, got %v", want, page.WordCounts)
	}

	wantLinks := []string{"https://example.com/about", "https://other.example/page?a=1&b=2"}
	if !reflect.DeepEqual(page.Links, wantLinks) {
		t.Errorf("expected links %v, got %v", wantLinks, page.Links)
	}
	if page.URL != "https://example.com" {
		t.Errorf("page URL should be the requested URL, got %q", page.URL)
	}
}

func TestSiteParseRawTokens(t *testing.T) {
	site := newTestSite(t, nil)
	page, err := site.Parse("https://example.com/")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if page.WordCounts["The"] != 2 {
		t.Errorf("without a pipeline words are counted as written, got %v", page.WordCounts)
	}
	if page.TotalWords() != 7 {
		t.Errorf("expected 7 words, got %d", page.TotalWords())
	}
}

func TestSiteParseLatency(t *testing.T) {
	site := newTestSite(t, nil)
	page, err := site.Parse("https://example.com/about")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if page.ParseDuration < time.Millisecond {
		t.Errorf("expected parse to take at least 1ms, took %v", page.ParseDuration)
	}
}

func TestSiteParseErrors(t *testing.T) {
	site := newTestSite(t, nil)

	_, err := site.Parse("https://example.com/missing")
	if !errors.Is(err, types.ErrPageNotFound) {
		t.Errorf("expected ErrPageNotFound, got %v", err)
	}

	_, err = site.Parse("https://example.com/broken")
	var pe *types.ParseError
	if !errors.As(err, &pe) || pe.URL != "https://example.com/broken" {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if pe.Err.Error() != "upstream exploded" {
		t.Errorf("expected configured error message, got %q", pe.Err)
	}
}

func TestParseSiteRejectsBadSnapshots(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not yaml", "pages: [unterminated"},
		{"missing url", "pages:\n  - text: hello\n"},
		{"duplicate url", "pages:\n  - url: https://a.example/\n  - url: https://A.example\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseSite([]byte(tt.data), nil, testLogger); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadSite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "site.yaml")
	if err := os.WriteFile(path, []byte(testSite), 0o644); err != nil {
		t.Fatal(err)
	}

	site, err := LoadSite(path, nil, testLogger)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if site.Len() != 3 {
		t.Errorf("expected 3 pages, got %d", site.Len())
	}

	if _, err := LoadSite(filepath.Join(t.TempDir(), "nope.yaml"), nil, testLogger); err == nil {
		t.Error("expected error for missing file")
	}
}

// --- Tokenizer Tests ---

func TestTokenize(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"Hello, world!", []string{"Hello", "world"}},
		{"don't 'quote'", []string{"don't", "quote"}},
		{"  ", []string{}},
		{"naïve café 42", []string{"naïve", "café", "42"}},
		{"a-b_c", []string{"a", "b", "c"}},
	}
	for _, tt := range tests {
		got := Tokenize(tt.in)
		if len(got) == 0 && len(tt.want) == 0 {
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Tokenize(%q) = %v; want %v", tt.in, got, tt.want)
		}
	}
}

// --- URL Tests ---

func TestCanonicalizeURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"HTTP://Example.COM/Path", "http://example.com/Path"},
		{"https://example.com:443/a/", "https://example.com/a"},
		{"http://example.com:8080/", "http://example.com:8080/"},
		{"https://example.com", "https://example.com/"},
		{"https://example.com/?z=1&a=2#x", "https://example.com/?a=2&z=1"},
	}
	for _, tt := range tests {
		if got := CanonicalizeURL(tt.in); got != tt.want {
			t.Errorf("CanonicalizeURL(%q) = %q; want %q", tt.in, got, tt.want)
		}
	}
}

func BenchmarkSiteParse(b *testing.B) {
	p, _ := pipeline.NewWordPipeline(pipeline.Options{MinWordLength: 2}, testLogger)
	site, err := ParseSite([]byte(testSite), p, testLogger)
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := site.Parse("https://example.com/"); err != nil {
			b.Fatal(err)
		}
	}
}
