package pipeline

import (
	"fmt"
	"log/slog"
	"regexp"
)

// IgnoreWordsMiddleware drops words that fully match any of its patterns.
type IgnoreWordsMiddleware struct {
	patterns []*regexp.Regexp
}

// NewIgnoreWordsMiddleware compiles patterns. Each must match the whole word.
func NewIgnoreWordsMiddleware(patterns []string) (*IgnoreWordsMiddleware, error) {
	m := &IgnoreWordsMiddleware{patterns: make([]*regexp.Regexp, 0, len(patterns))}
	for _, p := range patterns {
		re, err := regexp.Compile(`^(?:` + p + `)$`)
		if err != nil {
			return nil, fmt.Errorf("compiling ignored word pattern %q: %w", p, err)
		}
		m.patterns = append(m.patterns, re)
	}
	return m, nil
}

func (m *IgnoreWordsMiddleware) Name() string { return "ignore_words" }

func (m *IgnoreWordsMiddleware) Process(word string) (string, bool) {
	for _, re := range m.patterns {
		if re.MatchString(word) {
			return "", false
		}
	}
	return word, true
}

// Options configures the standard word pipeline.
type Options struct {
	IgnoredWords  []string
	MinWordLength int
}

// NewWordPipeline builds the standard chain: trim, fold case, minimum length, then
// ignored words. Ignore patterns therefore see case-folded words.
func NewWordPipeline(opts Options, logger *slog.Logger) (*Pipeline, error) {
	p := New(logger)
	p.Use(&TrimMiddleware{})
	p.Use(NewFoldCaseMiddleware())
	if opts.MinWordLength > 0 {
		p.Use(&MinLengthMiddleware{N: opts.MinWordLength})
	}
	if len(opts.IgnoredWords) > 0 {
		ignore, err := NewIgnoreWordsMiddleware(opts.IgnoredWords)
		if err != nil {
			return nil, err
		}
		p.Use(ignore)
	}
	return p, nil
}
