package pipeline

import (
	"log/slog"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Middleware transforms a single word. Returning false drops the word.
type Middleware interface {
	// Name returns the middleware's identifier.
	Name() string

	// Process transforms a word. Return false to drop it.
	Process(word string) (string, bool)
}

// Pipeline chains word middleware together.
type Pipeline struct {
	middlewares []Middleware
	logger      *slog.Logger
}

// New creates a new Pipeline.
func New(logger *slog.Logger) *Pipeline {
	return &Pipeline{
		logger: logger.With("component", "pipeline"),
	}
}

// Use adds a middleware to the pipeline chain.
func (p *Pipeline) Use(mw Middleware) {
	p.middlewares = append(p.middlewares, mw)
	p.logger.Debug("middleware added", "name", mw.Name(), "position", len(p.middlewares))
}

// Process runs the word through all middleware in order. The pipeline is read-only
// once built and safe for concurrent use.
func (p *Pipeline) Process(word string) (string, bool) {
	current := word
	for _, mw := range p.middlewares {
		next, ok := mw.Process(current)
		if !ok || next == "" {
			return "", false
		}
		current = next
	}
	return current, current != ""
}

// Len returns the number of middleware in the chain.
func (p *Pipeline) Len() int {
	return len(p.middlewares)
}

// --- Built-in Middleware ---

// TrimMiddleware strips leading and trailing characters that are neither letters
// nor digits.
type TrimMiddleware struct{}

func (m *TrimMiddleware) Name() string { return "trim" }

func (m *TrimMiddleware) Process(word string) (string, bool) {
	w := strings.TrimFunc(word, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return w, w != ""
}

// FoldCaseMiddleware normalizes a word to NFC and folds its case, so "Straße",
// "STRASSE" and "strasse" all count as one word.
type FoldCaseMiddleware struct {
	casers sync.Pool
}

// NewFoldCaseMiddleware creates a FoldCaseMiddleware.
func NewFoldCaseMiddleware() *FoldCaseMiddleware {
	m := &FoldCaseMiddleware{}
	m.casers.New = func() any {
		c := cases.Fold()
		return &c
	}
	return m
}

func (m *FoldCaseMiddleware) Name() string { return "fold_case" }

// Process is safe for concurrent use. A Caser carries state, so each call borrows
// one from the pool.
func (m *FoldCaseMiddleware) Process(word string) (string, bool) {
	c := m.casers.Get().(*cases.Caser)
	defer m.casers.Put(c)
	c.Reset()
	return norm.NFC.String(c.String(word)), true
}

// MinLengthMiddleware drops words shorter than N runes.
type MinLengthMiddleware struct {
	N int
}

func (m *MinLengthMiddleware) Name() string { return "min_length" }

func (m *MinLengthMiddleware) Process(word string) (string, bool) {
	if m.N > 0 && len([]rune(word)) < m.N {
		return "", false
	}
	return word, true
}
