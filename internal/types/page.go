package types

import "time"

// Page is the outcome of parsing a single URL.
type Page struct {
	// URL is the page that was parsed.
	URL string

	// WordCounts maps each word on the page to its number of occurrences.
	WordCounts map[string]int

	// Links are the outgoing URLs discovered on the page.
	Links []string

	// ParseDuration is how long the parse took.
	ParseDuration time.Duration
}

// NewPage creates an empty Page for the given URL.
func NewPage(url string) *Page {
	return &Page{
		URL:        url,
		WordCounts: make(map[string]int),
	}
}

// AddWord increments the count for a word.
func (p *Page) AddWord(word string) {
	p.WordCounts[word]++
}

// TotalWords returns the sum of all word counts on the page.
func (p *Page) TotalWords() int {
	total := 0
	for _, n := range p.WordCounts {
		total += n
	}
	return total
}
