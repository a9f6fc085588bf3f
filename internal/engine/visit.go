package engine

import (
	"slices"
	"sync"
	"sync/atomic"
)

// VisitTracker records which URLs have been claimed during a crawl.
// URLs are opaque: no canonicalization happens here.
type VisitTracker struct {
	seen  sync.Map
	count atomic.Int64
}

// NewVisitTracker creates an empty VisitTracker.
func NewVisitTracker() *VisitTracker {
	return &VisitTracker{}
}

// Claim marks url as visited. It returns false if url was already claimed, so exactly
// one of any number of concurrent callers for the same url gets true.
func (v *VisitTracker) Claim(url string) bool {
	if _, loaded := v.seen.LoadOrStore(url, struct{}{}); loaded {
		return false
	}
	v.count.Add(1)
	return true
}

// Count returns the number of claimed URLs.
func (v *VisitTracker) Count() int {
	return int(v.count.Load())
}

// Export returns all claimed URLs in sorted order.
func (v *VisitTracker) Export() []string {
	urls := make([]string, 0, v.Count())
	v.seen.Range(func(k, _ any) bool {
		urls = append(urls, k.(string))
		return true
	})
	slices.Sort(urls)
	return urls
}
