package engine

import (
	"container/heap"
	"context"
	"sync"
)

// Frontier is a thread-safe priority queue of crawl tasks.
// Tasks with more remaining depth come out first; ties are FIFO.
type Frontier struct {
	mu     sync.Mutex
	pq     priorityQueue
	cond   *sync.Cond
	closed bool
	seq    uint64
}

// NewFrontier creates a new Frontier.
func NewFrontier() *Frontier {
	f := &Frontier{
		pq: make(priorityQueue, 0, 1024),
	}
	f.cond = sync.NewCond(&f.mu)
	heap.Init(&f.pq)
	return f
}

// Push adds a task to the frontier. It reports false if the frontier is closed.
func (f *Frontier) Push(t *task) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return false
	}

	f.seq++
	heap.Push(&f.pq, &pqItem{task: t, depth: t.depth, seq: f.seq})
	f.cond.Signal()
	return true
}

// Pop removes and returns the highest-priority task.
// Blocks until a task is available, the frontier is closed, or ctx is done.
// Returns nil if the frontier is closed and empty, or ctx is done.
func (f *Frontier) Pop(ctx context.Context) *task {
	stop := context.AfterFunc(ctx, func() {
		f.mu.Lock()
		f.cond.Broadcast()
		f.mu.Unlock()
	})
	defer stop()

	f.mu.Lock()
	defer f.mu.Unlock()
	for f.pq.Len() == 0 && !f.closed && ctx.Err() == nil {
		f.cond.Wait()
	}
	if f.pq.Len() == 0 || ctx.Err() != nil {
		return nil
	}
	return heap.Pop(&f.pq).(*pqItem).task
}

// Len returns the number of tasks in the frontier.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pq.Len()
}

// Close closes the frontier, unblocking any waiting Pop calls.
func (f *Frontier) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.cond.Broadcast()
}

// --- Priority Queue Implementation ---

type pqItem struct {
	task  *task
	depth int
	seq   uint64
	index int
}

type priorityQueue []*pqItem

func (pq priorityQueue) Len() int { return len(pq) }

func (pq priorityQueue) Less(i, j int) bool {
	if pq[i].depth != pq[j].depth {
		return pq[i].depth > pq[j].depth
	}
	return pq[i].seq < pq[j].seq
}

func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *priorityQueue) Push(x any) {
	n := len(*pq)
	item := x.(*pqItem)
	item.index = n
	*pq = append(*pq, item)
}

func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil // GC
	item.index = -1
	*pq = old[:n-1]
	return item
}
