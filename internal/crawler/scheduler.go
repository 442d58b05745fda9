package crawler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nao1215/crawl/internal/index"
	"github.com/nao1215/crawl/internal/metrics"
	"golang.org/x/sync/errgroup"
)

// Scheduler defaults.
const (
	// DefaultMaxDepth follows links one level away from the seed.
	DefaultMaxDepth = 1

	// DefaultMaxThreads is the default worker pool size.
	DefaultMaxThreads = 10
)

// State is the lifecycle phase of a Scheduler.
type State int

const (
	// StateIdle means no crawl has started.
	StateIdle State = iota
	// StateSeeding means the seed is being normalized and queued.
	StateSeeding
	// StateRunning means workers are processing the frontier.
	StateRunning
	// StateDraining means the frontier drained or the crawl was cancelled
	// and the scheduler is waiting for workers to return.
	StateDraining
	// StateDone means the crawl finished and the indexer was closed.
	StateDone
)

// String returns the name of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSeeding:
		return "seeding"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Stats summarizes a finished crawl.
type Stats struct {
	// PagesFetched is the number of pages fetched and decoded.
	PagesFetched int `json:"pages_fetched"`

	// FetchFailures is the number of pages that could not be fetched.
	FetchFailures int `json:"fetch_failures"`

	// ExtractionFailures is the number of pages whose links could not be extracted.
	ExtractionFailures int `json:"extraction_failures"`

	// IndexFailures is the number of pages the indexer refused.
	IndexFailures int `json:"index_failures"`

	// LinksRejected is the number of extracted links dropped by Normalize.
	LinksRejected int `json:"links_rejected"`

	// MaxDepth and MaxThreads echo the crawl limits.
	MaxDepth   int `json:"max_depth"`
	MaxThreads int `json:"max_threads"`

	// Elapsed is the wall-clock duration of the crawl.
	// It is encoded in JSON as "elapsed_seconds".
	Elapsed time.Duration `json:"-"`
}

// statsJSON is Stats without its methods.
type statsJSON Stats

// MarshalJSON encodes Elapsed as fractional seconds.
func (s Stats) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		statsJSON
		ElapsedSeconds float64 `json:"elapsed_seconds"`
	}{statsJSON(s), s.Elapsed.Seconds()})
}

// UnmarshalJSON decodes the form written by MarshalJSON.
func (s *Stats) UnmarshalJSON(data []byte) error {
	var aux struct {
		statsJSON
		ElapsedSeconds float64 `json:"elapsed_seconds"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*s = Stats(aux.statsJSON)
	s.Elapsed = time.Duration(aux.ElapsedSeconds * float64(time.Second))
	return nil
}

// Result is the outcome of a crawl.
type Result struct {
	// Seed is the normalized seed URL.
	Seed string `json:"seed"`

	// URLs are the recorded URLs in lexical order.
	URLs []string `json:"urls"`

	// Stats summarizes the crawl.
	Stats Stats `json:"stats"`
}

// Scheduler runs crawls with a bounded pool of workers.
//
// A Scheduler closes its indexer when a crawl ends, so a Scheduler that was
// given an indexer should be used for a single crawl.
type Scheduler struct {
	// fetcher retrieves pages for all workers.
	fetcher Fetcher

	// maxDepth is the deepest link distance that is fetched.
	// Links found at maxDepth are recorded but not followed.
	maxDepth int

	// maxThreads is the number of concurrent workers.
	maxThreads int

	// indexer receives every fetched page when indexing is true.
	indexer  index.Port
	indexing bool
	field    string

	// extractorOpts configure the per-worker extractors.
	extractorOpts []ExtractorOption

	logger  *slog.Logger
	metrics *metrics.Metrics

	mu    sync.Mutex
	state State
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithMaxDepth sets the maximum link depth. Negative values are ignored.
func WithMaxDepth(depth int) SchedulerOption {
	return func(s *Scheduler) {
		if depth >= 0 {
			s.maxDepth = depth
		}
	}
}

// WithMaxThreads sets the number of concurrent workers.
func WithMaxThreads(n int) SchedulerOption {
	return func(s *Scheduler) {
		if n > 0 {
			s.maxThreads = n
		}
	}
}

// WithIndexer enables indexing of fetched pages into p.
// A nil p disables indexing.
func WithIndexer(p index.Port) SchedulerOption {
	return func(s *Scheduler) {
		if p == nil {
			s.indexer = index.Nop{}
			s.indexing = false
			return
		}
		s.indexer = index.Synchronize(p)
		s.indexing = true
	}
}

// WithIndexField sets the field pages are indexed under.
func WithIndexField(field string) SchedulerOption {
	return func(s *Scheduler) {
		if field != "" {
			s.field = field
		}
	}
}

// WithExtractorOptions configures the extractor of every worker.
func WithExtractorOptions(opts ...ExtractorOption) SchedulerOption {
	return func(s *Scheduler) {
		s.extractorOpts = append(s.extractorOpts, opts...)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics records crawl metrics into m.
func WithMetrics(m *metrics.Metrics) SchedulerOption {
	return func(s *Scheduler) {
		s.metrics = m
	}
}

// NewScheduler creates a Scheduler that fetches pages with fetcher.
func NewScheduler(fetcher Fetcher, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		fetcher:    fetcher,
		maxDepth:   DefaultMaxDepth,
		maxThreads: DefaultMaxThreads,
		indexer:    index.Nop{},
		field:      index.DefaultField,
		logger:     slog.Default(),
		state:      StateIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current lifecycle phase.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Scheduler) setState(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	s.logger.Debug("scheduler state changed", "state", state.String())
}

// Crawl visits every page reachable from seed within the depth limit and
// returns the recorded URLs.
//
// Only an invalid seed makes Crawl fail. Per-page failures are logged and
// counted in Result.Stats. When ctx is cancelled the workers stop at their
// next frontier read and Crawl returns the partial result with ctx.Err().
func (s *Scheduler) Crawl(ctx context.Context, seed string) (*Result, error) {
	start := time.Now()
	s.setState(StateSeeding)

	n := Normalize(seed)
	if !n.Accepted() {
		s.setState(StateDone)
		return nil, fmt.Errorf("%w %q: %w", ErrInvalidSeed, seed, n.Err())
	}

	frontier := NewFrontier()
	results := NewResultSet()
	frontier.Put(WorkItem{URL: n.URL, Depth: 0})
	s.metrics.SetFrontierPending(frontier.Len())

	s.logger.Info("crawl started",
		"seed", n.URL,
		"max_depth", s.maxDepth,
		"max_threads", s.maxThreads,
		"indexing", s.indexing,
	)
	s.setState(StateRunning)

	// Design decision: We start maxThreads long-lived workers that block on
	// Frontier.Get rather than one goroutine per URL because:
	//  1. Memory stays bounded by the pool size however large the frontier grows
	//  2. Each worker owns its Extractor and reuses its buffers across pages
	//  3. Termination is decided in one place: Get returns false to every
	//     worker once the frontier drains or ctx is cancelled
	stats := &counters{}
	var g errgroup.Group
	g.SetLimit(s.maxThreads)
	for i := range s.maxThreads {
		w := &worker{
			id:        i,
			frontier:  frontier,
			results:   results,
			fetcher:   s.fetcher,
			extractor: NewExtractor(s.extractorOpts...),
			indexer:   s.indexer,
			field:     s.field,
			indexing:  s.indexing,
			maxDepth:  s.maxDepth,
			logger:    s.logger,
			metrics:   s.metrics,
			stats:     stats,
		}
		g.Go(func() error {
			w.run(ctx)
			return nil
		})
	}

	select {
	case <-frontier.Drained():
	case <-ctx.Done():
	}
	s.setState(StateDraining)
	_ = g.Wait()

	if err := s.indexer.Close(); err != nil {
		s.logger.Warn("failed to close indexer", "error", err)
	}

	result := &Result{
		Seed: n.URL,
		URLs: results.URLs(),
		Stats: Stats{
			PagesFetched:       int(stats.pagesFetched.Load()),
			FetchFailures:      int(stats.fetchFailures.Load()),
			ExtractionFailures: int(stats.extractionFailures.Load()),
			IndexFailures:      int(stats.indexFailures.Load()),
			LinksRejected:      int(stats.linksRejected.Load()),
			MaxDepth:           s.maxDepth,
			MaxThreads:         s.maxThreads,
			Elapsed:            time.Since(start),
		},
	}
	s.setState(StateDone)

	s.logger.Info("crawl finished",
		"seed", n.URL,
		"urls", len(result.URLs),
		"pages_fetched", result.Stats.PagesFetched,
		"fetch_failures", result.Stats.FetchFailures,
		"elapsed", result.Stats.Elapsed,
	)

	select {
	case <-frontier.Drained():
		return result, nil
	default:
		return result, ctx.Err()
	}
}
