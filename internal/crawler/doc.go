// Package crawler implements a concurrent, depth-bounded web crawler.
//
// # Architecture
//
// A crawl is coordinated by the Scheduler. It normalizes the seed URL,
// places it on a Frontier at depth 0 and starts a bounded pool of workers.
// Each worker repeatedly takes one WorkItem from the Frontier, fetches the
// page, optionally hands the body to an indexer, extracts hyperlinks and
// pushes the new ones back onto the Frontier one level deeper.
//
// # Components
//
//   - Normalize: canonicalizes raw links and rejects malformed or non-HTML ones
//   - Extractor: tokenizes HTML and pulls URL candidates out of href attributes
//   - Frontier: deduplicating set of pending work with an in-flight counter
//   - ResultSet: deduplicated set of every URL the crawl recorded
//   - Fetcher: retrieves a page and decodes its body to text
//   - Scheduler: owns the worker pool and decides when the crawl is over
//
// # Termination
//
// The crawl is over when the Frontier holds no pending items and no worker
// is processing one. Workers block on the Frontier instead of polling it, so
// a worker never exits while another worker may still produce links.
//
// # Usage
//
//	fetcher := crawler.NewHTTPFetcher(http.DefaultClient)
//	scheduler := crawler.NewScheduler(fetcher, crawler.WithMaxDepth(2))
//	result, err := scheduler.Crawl(ctx, "http://example.com")
package crawler
