package crawler

import (
	"net/url"
	"regexp"
	"strings"
)

// defaultScheme is used for scheme-less links such as "example.com/a".
const defaultScheme = "http"

// wwwPrefix is removed from hosts so that "www.example.com" and
// "example.com" collapse to one entry.
const wwwPrefix = "www."

// schemePrefix matches a link that starts with "scheme://". A "://" later
// in the link, such as in a query parameter, does not count.
var schemePrefix = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.-]*://`)

// htmlMediaTypes are the fragment values accepted as HTML documents.
var htmlMediaTypes = map[string]struct{}{
	"html":  {},
	"xhtml": {},
	"htm":   {},
}

// RejectReason explains why Normalize refused a link.
type RejectReason int

const (
	// RejectNone means the link was accepted.
	RejectNone RejectReason = iota
	// RejectMalformedLink means the host was empty or the link did not parse.
	RejectMalformedLink
	// RejectInvalidMediaType means the fragment named a non-HTML media type.
	RejectInvalidMediaType
)

// String returns the label used in logs and metrics.
func (r RejectReason) String() string {
	switch r {
	case RejectNone:
		return "none"
	case RejectMalformedLink:
		return "malformed_link"
	case RejectInvalidMediaType:
		return "invalid_media_type"
	default:
		return "unknown"
	}
}

// Normalized is the outcome of Normalize.
// URL is set only when Reason is RejectNone.
type Normalized struct {
	URL    string
	Reason RejectReason
}

// Accepted reports whether the link survived normalization.
func (n Normalized) Accepted() bool {
	return n.Reason == RejectNone
}

// Err returns the sentinel error matching the rejection, or nil.
func (n Normalized) Err() error {
	switch n.Reason {
	case RejectNone:
		return nil
	case RejectInvalidMediaType:
		return ErrInvalidMediaType
	default:
		return ErrMalformedLink
	}
}

// Normalize canonicalizes a raw link into the form "scheme://host/path".
//
// The link is percent-decoded, one trailing slash is removed, a fragment
// other than html/xhtml/htm rejects the link, a leading "www." is stripped
// from the host and a missing scheme defaults to http. Query, userinfo and
// fragment are not part of the output. Normalize is deterministic and
// Normalize(Normalize(x).URL) == Normalize(x) for every accepted x.
//
// Design decision: every valid escape is decoded before parsing, so a "%"
// left in the link is a literal percent sign ("/100%25" decodes to "/100%",
// "/50%off" stays as is). It is escaped again as "%25" for url.Parse, which
// would otherwise reject the link, and comes back as a plain "%" in the
// path. The output therefore decodes to itself.
func Normalize(raw string) Normalized {
	link := percentDecode(raw)
	link = strings.TrimSuffix(link, "/")

	if !schemePrefix.MatchString(link) && !strings.HasPrefix(link, "//") {
		link = "//" + link
	}

	u, err := url.Parse(strings.ReplaceAll(link, "%", "%25"))
	if err != nil {
		return Normalized{Reason: RejectMalformedLink}
	}

	if u.Fragment != "" {
		if _, ok := htmlMediaTypes[u.Fragment]; !ok {
			return Normalized{Reason: RejectInvalidMediaType}
		}
	}

	host := strings.ToLower(u.Host)
	for strings.HasPrefix(host, wwwPrefix) {
		host = strings.TrimPrefix(host, wwwPrefix)
	}
	if host == "" || strings.HasPrefix(host, ":") {
		return Normalized{Reason: RejectMalformedLink}
	}

	scheme := u.Scheme
	if scheme == "" {
		scheme = defaultScheme
	}

	return Normalized{URL: scheme + "://" + host + strings.TrimRight(u.Path, "/")}
}

// percentDecode decodes %XX escapes until the string stops changing.
// Invalid escapes are kept verbatim. Every round that changes the string
// shortens it, so the loop terminates.
func percentDecode(s string) string {
	for {
		decoded := decodeOnce(s)
		if decoded == s {
			return s
		}
		s = decoded
	}
}

func decodeOnce(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]) {
			b.WriteByte(unhex(s[i+1])<<4 | unhex(s[i+2]))
			i += 2
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}
