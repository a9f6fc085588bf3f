// Package wordcount aggregates word occurrences across pages and ranks the result.
package wordcount

import (
	"hash/maphash"
	"sync"
)

const shardCount = 32

// Accumulator is a concurrent word -> count map. Merges from different goroutines
// only contend when they touch words that hash to the same shard.
type Accumulator struct {
	seed   maphash.Seed
	shards [shardCount]shard
}

type shard struct {
	mu     sync.Mutex
	counts map[string]int
}

// NewAccumulator creates an empty Accumulator.
func NewAccumulator() *Accumulator {
	a := &Accumulator{seed: maphash.MakeSeed()}
	for i := range a.shards {
		a.shards[i].counts = make(map[string]int)
	}
	return a
}

// Merge adds every count in counts to the accumulated totals. A zero count still
// records the word; negative counts are ignored.
func (a *Accumulator) Merge(counts map[string]int) {
	for word, n := range counts {
		if n < 0 {
			continue
		}
		s := a.shardFor(word)
		s.mu.Lock()
		s.counts[word] += n
		s.mu.Unlock()
	}
}

// Get returns the accumulated count for word.
func (a *Accumulator) Get(word string) int {
	s := a.shardFor(word)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[word]
}

// Len returns the number of distinct words.
func (a *Accumulator) Len() int {
	total := 0
	for i := range a.shards {
		s := &a.shards[i]
		s.mu.Lock()
		total += len(s.counts)
		s.mu.Unlock()
	}
	return total
}

// Snapshot returns a copy of all accumulated counts.
func (a *Accumulator) Snapshot() map[string]int {
	out := make(map[string]int)
	for i := range a.shards {
		s := &a.shards[i]
		s.mu.Lock()
		for w, n := range s.counts {
			out[w] = n
		}
		s.mu.Unlock()
	}
	return out
}

func (a *Accumulator) shardFor(word string) *shard {
	h := maphash.String(a.seed, word)
	return &a.shards[h%shardCount]
}
