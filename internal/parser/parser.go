package parser

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/IshaanNene/wordstalk/internal/pipeline"
	"github.com/IshaanNene/wordstalk/internal/types"
)

// Snapshot is the on-disk form of a site: a list of pages with their text and
// outgoing links.
type Snapshot struct {
	Pages []SnapshotPage `yaml:"pages"`
}

// SnapshotPage is one page of a Snapshot.
type SnapshotPage struct {
	URL   string   `yaml:"url"`
	Text  string   `yaml:"text"`
	Links []string `yaml:"links,omitempty"`

	// Latency simulates a slow page; Parse sleeps this long before returning.
	Latency time.Duration `yaml:"latency,omitempty"`

	// Error makes Parse fail with this message.
	Error string `yaml:"error,omitempty"`
}

type sitePage struct {
	words   []string
	links   []string
	latency time.Duration
	err     error
}

// Site parses pages out of an in-memory snapshot. It is immutable after loading
// and safe for concurrent use.
type Site struct {
	pages    map[string]*sitePage
	pipeline *pipeline.Pipeline
	logger   *slog.Logger
}

// LoadSite reads a YAML snapshot from path.
func LoadSite(path string, p *pipeline.Pipeline, logger *slog.Logger) (*Site, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading site snapshot: %w", err)
	}
	site, err := ParseSite(data, p, logger)
	if err != nil {
		return nil, fmt.Errorf("site snapshot %s: %w", path, err)
	}
	return site, nil
}

// ParseSite builds a Site from YAML snapshot data. A nil pipeline counts raw tokens.
func ParseSite(data []byte, p *pipeline.Pipeline, logger *slog.Logger) (*Site, error) {
	var snap Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	return NewSite(snap, p, logger)
}

// NewSite indexes snap by canonical URL. Each page's text is tokenized once, here.
func NewSite(snap Snapshot, p *pipeline.Pipeline, logger *slog.Logger) (*Site, error) {
	if p == nil {
		p = pipeline.New(logger)
	}
	s := &Site{
		pages:    make(map[string]*sitePage, len(snap.Pages)),
		pipeline: p,
		logger:   logger.With("component", "site_parser"),
	}

	for i, sp := range snap.Pages {
		if strings.TrimSpace(sp.URL) == "" {
			return nil, fmt.Errorf("page %d: url is required", i)
		}
		key := CanonicalizeURL(sp.URL)
		if _, dup := s.pages[key]; dup {
			return nil, fmt.Errorf("page %d: duplicate url %s", i, key)
		}

		page := &sitePage{
			words:   Tokenize(sp.Text),
			links:   resolveLinks(key, sp.Links),
			latency: sp.Latency,
		}
		if sp.Error != "" {
			page.err = errors.New(sp.Error)
		}
		s.pages[key] = page
	}

	s.logger.Debug("site loaded", "pages", len(s.pages))
	return s, nil
}

// Len returns the number of pages in the site.
func (s *Site) Len() int {
	return len(s.pages)
}

// Parse returns the words and links of url. Words are passed through the pipeline
// and counted; dropped words are not counted.
func (s *Site) Parse(url string) (*types.Page, error) {
	start := time.Now()
	key := CanonicalizeURL(url)

	sp, ok := s.pages[key]
	if !ok {
		return nil, &types.ParseError{URL: url, Err: types.ErrPageNotFound}
	}
	if sp.latency > 0 {
		time.Sleep(sp.latency)
	}
	if sp.err != nil {
		return nil, &types.ParseError{URL: url, Err: sp.err}
	}

	page := types.NewPage(url)
	for _, tok := range sp.words {
		if w, keep := s.pipeline.Process(tok); keep {
			page.AddWord(w)
		}
	}
	page.Links = append(page.Links, sp.links...)
	page.ParseDuration = time.Since(start)
	return page, nil
}

// Tokenize splits text into runs of letters, digits and inner apostrophes.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\'' && r != '’'
	})

	words := fields[:0]
	for _, f := range fields {
		f = strings.Trim(f, "'’")
		if f != "" {
			words = append(words, f)
		}
	}
	return words
}
