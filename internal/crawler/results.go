package crawler

import (
	"slices"
	"sync"
)

// ResultSet is the deduplicated set of URLs recorded during a crawl.
// It only grows. All methods are safe for concurrent use.
type ResultSet struct {
	mu   sync.RWMutex
	urls map[string]struct{}
}

// NewResultSet creates an empty ResultSet.
func NewResultSet() *ResultSet {
	return &ResultSet{urls: make(map[string]struct{})}
}

// Add records url and reports whether it was new.
// The check and the insert happen under one lock, so exactly one of any
// number of concurrent callers adding the same URL sees true.
func (r *ResultSet) Add(url string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.urls[url]; ok {
		return false
	}
	r.urls[url] = struct{}{}
	return true
}

// Contains reports whether url was recorded.
func (r *ResultSet) Contains(url string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.urls[url]
	return ok
}

// Len returns the number of recorded URLs.
func (r *ResultSet) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.urls)
}

// URLs returns the recorded URLs in lexical order.
func (r *ResultSet) URLs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	urls := make([]string, 0, len(r.urls))
	for url := range r.urls {
		urls = append(urls, url)
	}
	slices.Sort(urls)
	return urls
}
