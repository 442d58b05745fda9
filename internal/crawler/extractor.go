package crawler

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// linkAttribute is the only attribute scanned for URL candidates.
const linkAttribute = "href"

// linkPattern is John Gruber's liberal URL matcher. It finds absolute and
// scheme-less URLs inside arbitrary text; path-absolute links are made
// absolute before matching.
var linkPattern = regexp.MustCompile(`(?i)\b((?:[a-z][\w-]+:(?:/{1,3}|[a-z0-9%])|www\d{0,3}[.]|[a-z0-9.\-]+[.][a-z]{2,4}/)(?:[^\s()<>]+|\(([^\s()<>]+|(\([^\s()<>]+\)))*\))+(?:\(([^\s()<>]+|(\([^\s()<>]+\)))*\)|[^\s` + "`" + `!()\[\]{};:'".,<>?«»“”‘’]))`)

// Extractor pulls URL candidates out of HTML documents.
//
// An Extractor keeps scratch state between tokens and is therefore not safe
// for concurrent use. Each worker owns one instance and reuses it for every
// page it processes; the state is reset at the start of each Extract call.
type Extractor struct {
	// links collects the candidates found in the current document.
	links []string

	// basePage is the URL of the current document. Path-absolute links
	// are appended to it verbatim.
	basePage string

	// maxBuf limits the tokenizer buffer. 0 means unlimited.
	maxBuf int
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithMaxTokenSize limits how many bytes the tokenizer may buffer for a
// single token. Exceeding it fails extraction with ErrExtraction.
func WithMaxTokenSize(n int) ExtractorOption {
	return func(e *Extractor) {
		if n > 0 {
			e.maxBuf = n
		}
	}
}

// NewExtractor creates an Extractor.
func NewExtractor(opts ...ExtractorOption) *Extractor {
	e := &Extractor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Reset clears the state left by a previous document.
func (e *Extractor) Reset() {
	e.links = e.links[:0]
	e.basePage = ""
}

// Extract returns every URL candidate found in href attributes of body,
// in document order. Duplicates are kept; the caller deduplicates after
// normalization. basePage resolves path-absolute links such as "/about".
func (e *Extractor) Extract(body, basePage string) ([]string, error) {
	e.Reset()
	e.basePage = basePage

	z := html.NewTokenizer(strings.NewReader(body))
	if e.maxBuf > 0 {
		z.SetMaxBuf(e.maxBuf)
	}

	for {
		switch z.Next() {
		case html.ErrorToken:
			if err := z.Err(); !errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("%w: %w", ErrExtraction, err)
			}
			links := make([]string, len(e.links))
			copy(links, e.links)
			return links, nil
		case html.StartTagToken, html.SelfClosingTagToken:
			e.scanAttributes(z)
		default:
		}
	}
}

// scanAttributes inspects the attributes of the current start tag.
func (e *Extractor) scanAttributes(z *html.Tokenizer) {
	_, hasAttr := z.TagName()
	for hasAttr {
		var key, val []byte
		key, val, hasAttr = z.TagAttr()
		if string(key) != linkAttribute {
			continue
		}
		e.collect(string(val))
	}
}

// collect appends every URL match inside value.
func (e *Extractor) collect(value string) {
	if strings.HasPrefix(value, "/") && !strings.HasPrefix(value, "//") {
		value = e.basePage + value
	}
	e.links = append(e.links, linkPattern.FindAllString(value, -1)...)
}
