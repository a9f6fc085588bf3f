package wordcount

import (
	"bytes"
	"cmp"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"
)

// WordCount is a single ranked entry.
type WordCount struct {
	Word  string
	Count int
}

// Ranking is an ordered list of word counts, most popular first.
type Ranking []WordCount

// Top returns the n most popular words in counts.
//
// Words are ordered by count (descending), then word length (descending), then
// lexicographically. The order is total, so equal inputs always give equal output.
func Top(counts map[string]int, n int) Ranking {
	if n <= 0 || len(counts) == 0 {
		return Ranking{}
	}

	entries := make(Ranking, 0, len(counts))
	for w, c := range counts {
		entries = append(entries, WordCount{Word: w, Count: c})
	}
	slices.SortFunc(entries, compare)

	if len(entries) > n {
		entries = entries[:n]
	}
	return slices.Clip(entries)
}

func compare(a, b WordCount) int {
	if c := cmp.Compare(b.Count, a.Count); c != 0 {
		return c
	}
	if c := cmp.Compare(utf8.RuneCountInString(b.Word), utf8.RuneCountInString(a.Word)); c != 0 {
		return c
	}
	return strings.Compare(a.Word, b.Word)
}

// Map returns the ranking as an unordered map.
func (r Ranking) Map() map[string]int {
	m := make(map[string]int, len(r))
	for _, wc := range r {
		m[wc.Word] = wc.Count
	}
	return m
}

// Words returns the ranked words in order.
func (r Ranking) Words() []string {
	words := make([]string, len(r))
	for i, wc := range r {
		words[i] = wc.Word
	}
	return words
}

// MarshalJSON encodes the ranking as a JSON object whose key order is the rank order.
func (r Ranking) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, wc := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(wc.Word)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		fmt.Fprintf(&buf, ":%d", wc.Count)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, keeping the key order of the document.
func (r *Ranking) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("word counts: expected object, got %v", tok)
	}

	out := Ranking{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		word, ok := tok.(string)
		if !ok {
			return fmt.Errorf("word counts: expected string key, got %v", tok)
		}
		var count int
		if err := dec.Decode(&count); err != nil {
			return fmt.Errorf("word counts: count for %q: %w", word, err)
		}
		out = append(out, WordCount{Word: word, Count: count})
	}
	*r = out
	return nil
}
