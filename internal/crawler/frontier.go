package crawler

import (
	"context"
	"sync"
)

// WorkItem is a URL waiting to be visited together with its link distance
// from the seed. The seed has depth 0.
type WorkItem struct {
	URL   string
	Depth int
}

// Frontier is the set of pending work shared by all workers.
//
// Insertion is idempotent by URL for the lifetime of the Frontier: a URL that
// was ever put keeps its first depth and is never queued again. Removal order
// is unspecified.
//
// The Frontier also counts items that were taken by Get and not yet
// released with Done. The crawl is drained once nothing is pending and
// nothing is in flight; from then on Get returns false to every caller.
// A Frontier serves a single crawl and is not reused.
//
// Design decision: We count in-flight items inside the Frontier rather than
// checking an empty queue from the scheduler because:
//  1. An empty queue alone is not the end of a crawl; a worker that is still
//     fetching may push new links a moment later
//  2. Get, Put and Done share one lock, so "nothing pending and nothing in
//     flight" is observed atomically and cannot race with a late Put
//  3. Waiting workers sleep on a condition variable instead of polling
type Frontier struct {
	mu   sync.Mutex
	cond *sync.Cond

	// pending holds the items not yet handed to a worker, keyed by URL.
	pending map[string]WorkItem

	// seen holds every URL ever inserted.
	seen map[string]struct{}

	// inFlight counts items returned by Get and not yet marked Done.
	inFlight int

	// drained is closed when the frontier drains for the first time.
	drained   chan struct{}
	isDrained bool
}

// NewFrontier creates an empty Frontier.
func NewFrontier() *Frontier {
	f := &Frontier{
		pending: make(map[string]WorkItem),
		seen:    make(map[string]struct{}),
		drained: make(chan struct{}),
	}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// Put inserts item unless its URL was inserted before.
// It never blocks and reports whether the item was added.
func (f *Frontier) Put(item WorkItem) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.seen[item.URL]; ok {
		return false
	}
	f.seen[item.URL] = struct{}{}
	f.pending[item.URL] = item
	f.cond.Signal()
	return true
}

// Get blocks until an item is available and removes it from the frontier.
// The caller must call Done once it has finished with the item.
//
// Get returns false when the frontier is drained or ctx is done.
func (f *Frontier) Get(ctx context.Context) (WorkItem, bool) {
	stop := context.AfterFunc(ctx, f.wakeAll)
	defer stop()

	f.mu.Lock()
	defer f.mu.Unlock()

	for {
		if ctx.Err() != nil {
			return WorkItem{}, false
		}
		if len(f.pending) > 0 {
			break
		}
		if f.inFlight == 0 {
			f.markDrained()
			return WorkItem{}, false
		}
		f.cond.Wait()
	}

	for url, item := range f.pending {
		delete(f.pending, url)
		f.inFlight++
		return item, true
	}
	return WorkItem{}, false
}

// Done marks one item obtained from Get as finished.
func (f *Frontier) Done() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.inFlight > 0 {
		f.inFlight--
	}
	if f.inFlight == 0 && len(f.pending) == 0 {
		f.markDrained()
		f.cond.Broadcast()
	}
}

// Drained returns a channel that is closed once the frontier has drained.
func (f *Frontier) Drained() <-chan struct{} {
	return f.drained
}

// IsEmpty reports whether no item is pending.
func (f *Frontier) IsEmpty() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending) == 0
}

// Contains reports whether url is pending.
func (f *Frontier) Contains(url string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.pending[url]
	return ok
}

// Len returns the number of pending items.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending)
}

// InFlight returns the number of items taken by Get and not yet Done.
func (f *Frontier) InFlight() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inFlight
}

// wakeAll releases every goroutine blocked in Get so it can re-check
// its context.
func (f *Frontier) wakeAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cond.Broadcast()
}

// markDrained closes the drained channel once. f.mu must be held.
func (f *Frontier) markDrained() {
	if f.isDrained {
		return
	}
	f.isDrained = true
	close(f.drained)
}
