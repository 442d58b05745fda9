// Package metrics exposes Prometheus collectors for crawl runs.
//
// Collectors are registered on the registry passed to New so that tests and
// concurrent crawls do not share global state. A nil *Metrics is valid and
// records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// namespace prefixes every metric name.
const namespace = "crawl"

// Metrics holds the collectors updated by the crawler.
type Metrics struct {
	pagesFetched       prometheus.Counter
	fetchFailures      prometheus.Counter
	extractionFailures prometheus.Counter
	indexFailures      prometheus.Counter
	linksRejected      *prometheus.CounterVec
	resultsRecorded    prometheus.Counter
	activeWorkers      prometheus.Gauge
	frontierPending    prometheus.Gauge
	fetchDuration      prometheus.Histogram
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		pagesFetched: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_fetched_total",
			Help:      "Total number of pages fetched and decoded.",
		}),
		fetchFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_failures_total",
			Help:      "Total number of pages that could not be fetched or decoded.",
		}),
		extractionFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extraction_failures_total",
			Help:      "Total number of pages whose links could not be extracted.",
		}),
		indexFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_failures_total",
			Help:      "Total number of pages the indexer refused.",
		}),
		linksRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "links_rejected_total",
				Help:      "Total number of extracted links dropped by normalization, labeled by reason.",
			},
			[]string{"reason"},
		),
		resultsRecorded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "results_recorded_total",
			Help:      "Total number of distinct URLs recorded in the result set.",
		}),
		activeWorkers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_workers",
			Help:      "Number of workers currently processing a page.",
		}),
		frontierPending: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "frontier_pending",
			Help:      "Number of URLs waiting in the frontier.",
		}),
		fetchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Histogram of page fetch latencies.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}),
	}
}

// ObservePageFetched records a successful fetch and its latency.
func (m *Metrics) ObservePageFetched(d time.Duration) {
	if m == nil {
		return
	}
	m.pagesFetched.Inc()
	m.fetchDuration.Observe(d.Seconds())
}

// ObserveFetchFailure records a failed fetch.
func (m *Metrics) ObserveFetchFailure() {
	if m == nil {
		return
	}
	m.fetchFailures.Inc()
}

// ObserveExtractionFailure records a page whose links could not be extracted.
func (m *Metrics) ObserveExtractionFailure() {
	if m == nil {
		return
	}
	m.extractionFailures.Inc()
}

// ObserveIndexFailure records a page the indexer refused.
func (m *Metrics) ObserveIndexFailure() {
	if m == nil {
		return
	}
	m.indexFailures.Inc()
}

// ObserveRejectedLink records a link dropped by normalization.
func (m *Metrics) ObserveRejectedLink(reason string) {
	if m == nil {
		return
	}
	m.linksRejected.WithLabelValues(reason).Inc()
}

// ObserveResult records a URL newly added to the result set.
func (m *Metrics) ObserveResult() {
	if m == nil {
		return
	}
	m.resultsRecorded.Inc()
}

// IncActiveWorkers increments the active workers gauge.
func (m *Metrics) IncActiveWorkers() {
	if m == nil {
		return
	}
	m.activeWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func (m *Metrics) DecActiveWorkers() {
	if m == nil {
		return
	}
	m.activeWorkers.Dec()
}

// SetFrontierPending sets the frontier size gauge.
func (m *Metrics) SetFrontierPending(n int) {
	if m == nil {
		return
	}
	m.frontierPending.Set(float64(n))
}

// Handler returns an http.Handler exposing the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
