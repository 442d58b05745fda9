package crawler

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
)

// Defaults for HTTPFetcher.
const (
	// DefaultFetchTimeout bounds a single page retrieval.
	DefaultFetchTimeout = 5 * time.Second

	// DefaultMaxBodySize limits how much of a response body is read.
	DefaultMaxBodySize int64 = 10 * 1024 * 1024

	// DefaultUserAgent identifies the crawler to servers.
	DefaultUserAgent = "crawl/1.0 (+https://github.com/nao1215/crawl)"
)

// Page is a fetched document with its body decoded to text.
type Page struct {
	// URL is the address that was requested.
	URL string

	// StatusCode is the HTTP status of the final response.
	StatusCode int

	// ContentType is the raw Content-Type header value.
	ContentType string

	// Charset is the name of the encoding used to decode Body.
	Charset string

	// Body is the decoded document text.
	Body string
}

// Fetcher retrieves pages. Implementations must be safe for concurrent use.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Page, error)
}

// HTTPFetcher fetches pages over HTTP(S) with GET requests.
type HTTPFetcher struct {
	// client performs the requests. It may route through a proxy.
	client *http.Client

	// timeout bounds each Fetch call including reading the body.
	timeout time.Duration

	// userAgent is sent with every request.
	userAgent string

	// maxBodySize limits the number of body bytes read.
	maxBodySize int64

	// fallback decodes bodies whose Content-Type names no charset.
	fallback     encoding.Encoding
	fallbackName string
}

// FetcherOption configures an HTTPFetcher.
type FetcherOption func(*HTTPFetcher)

// WithFetchTimeout sets the per-page timeout.
func WithFetchTimeout(d time.Duration) FetcherOption {
	return func(f *HTTPFetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) FetcherOption {
	return func(f *HTTPFetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithMaxBodySize sets the maximum number of body bytes read per page.
func WithMaxBodySize(size int64) FetcherOption {
	return func(f *HTTPFetcher) {
		if size > 0 {
			f.maxBodySize = size
		}
	}
}

// WithFallbackCharset sets the encoding used when the server does not
// declare one. Unknown labels leave the UTF-8 default in place.
func WithFallbackCharset(label string) FetcherOption {
	return func(f *HTTPFetcher) {
		if enc, name := charset.Lookup(label); enc != nil {
			f.fallback = enc
			f.fallbackName = name
		}
	}
}

// NewHTTPFetcher creates a fetcher around client.
// A nil client means http.DefaultClient.
func NewHTTPFetcher(client *http.Client, opts ...FetcherOption) *HTTPFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	f := &HTTPFetcher{
		client:       client,
		timeout:      DefaultFetchTimeout,
		userAgent:    DefaultUserAgent,
		maxBodySize:  DefaultMaxBodySize,
		fallback:     unicode.UTF8,
		fallbackName: "utf-8",
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch retrieves url and decodes the body to text.
// Every failure is wrapped with ErrFetch.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*Page, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrFetch, resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	enc, name, err := f.encodingFor(contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}

	body, err := io.ReadAll(enc.NewDecoder().Reader(io.LimitReader(resp.Body, f.maxBodySize)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}

	return &Page{
		URL:         url,
		StatusCode:  resp.StatusCode,
		ContentType: contentType,
		Charset:     name,
		Body:        string(body),
	}, nil
}

// encodingFor picks the decoder for a Content-Type header value.
// A declared but unknown charset and a non-text media type are errors.
func (f *HTTPFetcher) encodingFor(contentType string) (encoding.Encoding, string, error) {
	if contentType == "" {
		return f.fallback, f.fallbackName, nil
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, "", fmt.Errorf("invalid content type %q: %w", contentType, err)
	}
	if !isTextual(mediaType) {
		return nil, "", fmt.Errorf("non-text content type %q", mediaType)
	}

	label, ok := params["charset"]
	if !ok || label == "" {
		return f.fallback, f.fallbackName, nil
	}
	enc, name := charset.Lookup(label)
	if enc == nil {
		return nil, "", fmt.Errorf("unsupported charset %q", label)
	}
	return enc, name, nil
}

// isTextual reports whether a media type can carry a document with links.
func isTextual(mediaType string) bool {
	return strings.HasPrefix(mediaType, "text/") ||
		mediaType == "application/xhtml+xml" ||
		mediaType == "application/xml" ||
		strings.HasSuffix(mediaType, "+xml")
}
