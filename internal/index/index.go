package index

import (
	"context"
	"errors"
	"sync"
)

// Sentinel errors for the index package.
var (
	// ErrUnavailable indicates the index backend could not be opened.
	// Callers degrade to Nop when they see it.
	ErrUnavailable = errors.New("index unavailable")

	// ErrClosed is returned by operations on a closed index.
	ErrClosed = errors.New("index closed")

	// ErrEmptyQuery is returned by Search for a blank term.
	ErrEmptyQuery = errors.New("empty search query")
)

// DefaultField is the field crawled page bodies are stored under.
const DefaultField = "html"

// DefaultSearchLimit caps the number of hits returned by Search.
const DefaultSearchLimit = 1000

// Hit is one search result.
type Hit struct {
	// Score is the relevance of the hit; higher is better.
	Score float64 `json:"score"`

	// URL is the address of the matching document.
	URL string `json:"url"`

	// Snippet is a short excerpt around the match.
	Snippet string `json:"snippet"`
}

// Port is the interface the crawler uses to store and query page text.
type Port interface {
	// AddDocument stores text for url under field.
	AddDocument(ctx context.Context, url, field, text string) error

	// Search returns documents whose field matches term, best first.
	Search(ctx context.Context, field, term string) ([]Hit, error)

	// Close flushes and releases the index.
	Close() error
}

// Nop is a Port that stores nothing and finds nothing.
type Nop struct{}

var _ Port = Nop{}

// AddDocument discards the document.
func (Nop) AddDocument(context.Context, string, string, string) error { return nil }

// Search returns no hits.
func (Nop) Search(context.Context, string, string) ([]Hit, error) { return nil, nil }

// Close does nothing.
func (Nop) Close() error { return nil }

// Synchronized serializes every call to the wrapped Port behind one lock,
// so backends that are not safe for concurrent writers can be shared by
// all workers of a crawl.
type Synchronized struct {
	mu   sync.Mutex
	port Port
}

var _ Port = (*Synchronized)(nil)

// Synchronize wraps p unless it is already synchronized.
func Synchronize(p Port) *Synchronized {
	if s, ok := p.(*Synchronized); ok {
		return s
	}
	return &Synchronized{port: p}
}

// AddDocument forwards to the wrapped Port under the lock.
func (s *Synchronized) AddDocument(ctx context.Context, url, field, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port.AddDocument(ctx, url, field, text)
}

// Search forwards to the wrapped Port under the lock.
func (s *Synchronized) Search(ctx context.Context, field, term string) ([]Hit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port.Search(ctx, field, term)
}

// Close forwards to the wrapped Port under the lock.
func (s *Synchronized) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port.Close()
}
