package crawler

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/nao1215/crawl/internal/index"
	"github.com/nao1215/crawl/internal/metrics"
)

// counters accumulates crawl statistics across workers.
type counters struct {
	pagesFetched       atomic.Int64
	fetchFailures      atomic.Int64
	extractionFailures atomic.Int64
	indexFailures      atomic.Int64
	linksRejected      atomic.Int64
}

// worker processes frontier items until the crawl drains.
type worker struct {
	id        int
	frontier  *Frontier
	results   *ResultSet
	fetcher   Fetcher
	extractor *Extractor
	indexer   index.Port
	field     string
	indexing  bool
	maxDepth  int
	logger    *slog.Logger
	metrics   *metrics.Metrics
	stats     *counters
}

// run takes items from the frontier until Get reports the crawl is over.
func (w *worker) run(ctx context.Context) {
	for {
		item, ok := w.frontier.Get(ctx)
		if !ok {
			return
		}

		w.metrics.IncActiveWorkers()
		w.visit(ctx, item)
		w.metrics.DecActiveWorkers()

		w.frontier.Done()
		w.metrics.SetFrontierPending(w.frontier.Len())
	}
}

// visit fetches one page, indexes it and queues its links.
// Failures are logged and end the visit; they never stop the worker.
func (w *worker) visit(ctx context.Context, item WorkItem) {
	if w.results.Add(item.URL) {
		w.metrics.ObserveResult()
	}
	w.logger.Info("visiting", "url", item.URL, "depth", item.Depth, "worker", w.id)

	start := time.Now()
	page, err := w.fetcher.Fetch(ctx, item.URL)
	if err != nil {
		w.stats.fetchFailures.Add(1)
		w.metrics.ObserveFetchFailure()
		w.logger.Warn("failed to fetch page", "url", item.URL, "error", err)
		return
	}
	w.stats.pagesFetched.Add(1)
	w.metrics.ObservePageFetched(time.Since(start))

	if w.indexing {
		if err := w.indexer.AddDocument(ctx, item.URL, w.field, page.Body); err != nil {
			w.stats.indexFailures.Add(1)
			w.metrics.ObserveIndexFailure()
			w.logger.Warn("failed to index page", "url", item.URL, "error", err)
			return
		}
	}

	links, err := w.extractor.Extract(page.Body, item.URL)
	if err != nil {
		w.stats.extractionFailures.Add(1)
		w.metrics.ObserveExtractionFailure()
		w.logger.Error("failed to extract links", "url", item.URL, "error", err)
		return
	}

	queued := 0
	for _, link := range links {
		n := Normalize(link)
		if !n.Accepted() {
			w.stats.linksRejected.Add(1)
			w.metrics.ObserveRejectedLink(n.Reason.String())
			w.logger.Debug("dropping link", "link", link, "reason", n.Reason.String())
			continue
		}
		if !w.results.Add(n.URL) {
			continue
		}
		w.metrics.ObserveResult()

		if item.Depth < w.maxDepth {
			if w.frontier.Put(WorkItem{URL: n.URL, Depth: item.Depth + 1}) {
				queued++
			}
		}
	}
	w.logger.Debug("page processed", "url", item.URL, "links", len(links), "queued", queued)
}
