package crawler

import "errors"

// Sentinel errors for the crawler package.
// Callers match them with errors.Is; the crawler wraps them with context.
var (
	// ErrInvalidSeed is returned by Scheduler.Crawl when the seed URL
	// cannot be normalized. It is the only error that aborts a crawl.
	ErrInvalidSeed = errors.New("invalid seed URL")

	// ErrMalformedLink indicates a link whose host is empty or unparseable.
	ErrMalformedLink = errors.New("malformed link")

	// ErrInvalidMediaType indicates a link whose fragment names a media
	// type other than an HTML document.
	ErrInvalidMediaType = errors.New("invalid media type")

	// ErrFetch indicates a page could not be retrieved or decoded.
	ErrFetch = errors.New("fetch failed")

	// ErrExtraction indicates the HTML tokenizer failed on a page body.
	ErrExtraction = errors.New("link extraction failed")
)
