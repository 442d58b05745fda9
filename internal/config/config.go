package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// DefaultDepth follows only the links found on the seed page.
	DefaultDepth = 1

	// DefaultThreads is the number of concurrent workers.
	DefaultThreads = 10

	// DefaultTimeout bounds a single page fetch.
	DefaultTimeout = 5 * time.Second

	// DefaultFallbackCharset decodes bodies whose response does not name a charset.
	DefaultFallbackCharset = "utf-8"

	// DefaultUserAgent identifies the crawler in HTTP requests.
	DefaultUserAgent = "crawl/1.0 (+https://github.com/nao1215/crawl)"

	// DefaultMaxBodySize limits how much of a response body is read.
	DefaultMaxBodySize = 10 * 1024 * 1024 // 10MB

	// DefaultMaxTokenSize leaves the HTML tokenizer buffer unlimited.
	DefaultMaxTokenSize = 0

	// DefaultIndexField is the index field page text is stored under.
	DefaultIndexField = "html"

	// LogFormatText writes human-readable key=value logs.
	LogFormatText = "text"

	// LogFormatJSON writes one JSON object per log record.
	LogFormatJSON = "json"

	// AppName is the application name used for XDG directory paths.
	AppName = "crawl"
)

// Config holds all options of a crawl. It is populated from the
// configuration file and CLI flags, then passed down explicitly.
type Config struct {
	// Target is the seed URL.
	Target string

	// Depth is the maximum link depth. 0 fetches only the seed.
	Depth int

	// Threads is the maximum number of concurrent workers.
	Threads int

	// Timeout is the per-fetch timeout.
	Timeout time.Duration

	// FallbackCharset is used when a response names no charset.
	FallbackCharset string

	// UserAgent is the User-Agent header sent with every request.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes.
	// 0 uses DefaultMaxBodySize.
	MaxBodySize int64

	// MaxTokenSize limits the bytes buffered for a single HTML token during
	// link extraction. A page exceeding it counts as an extraction failure
	// and its links are not followed. 0 means no limit.
	MaxTokenSize int

	// ProxyAddress routes fetches through a SOCKS5 proxy ("host:port").
	// Empty means direct connections.
	ProxyAddress string

	// Headers are extra request headers in "Name: value" form.
	Headers []string

	// IndexEnabled stores fetched pages in the full-text index.
	IndexEnabled bool

	// IndexDir is the directory holding the index database.
	// Defaults to the XDG data directory (~/.local/share/crawl on Linux).
	IndexDir string

	// IndexField is the index field page text is stored under.
	IndexField string

	// Interactive starts a search prompt after the crawl.
	Interactive bool

	// Verbose enables debug logging.
	Verbose bool

	// LogFormat is LogFormatText or LogFormatJSON.
	LogFormat string

	// JSONReport writes the result as JSON. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport writes the result as Markdown. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When empty the report goes to stdout.
	ReportFile string

	// MetricsAddress serves Prometheus metrics during the crawl when set.
	MetricsAddress string

	// ConfigFilePath is the configuration file given with --config.
	ConfigFilePath string
}

// NewConfig creates a Config with default values.
func NewConfig() *Config {
	return &Config{
		Depth:           DefaultDepth,
		Threads:         DefaultThreads,
		Timeout:         DefaultTimeout,
		FallbackCharset: DefaultFallbackCharset,
		UserAgent:       DefaultUserAgent,
		MaxBodySize:     DefaultMaxBodySize,
		MaxTokenSize:    DefaultMaxTokenSize,
		IndexEnabled:    true,
		IndexDir:        XDGDataDir(),
		IndexField:      DefaultIndexField,
		LogFormat:       LogFormatText,
	}
}

// XDGDataDir returns the data directory of crawl.
// On Linux: ~/.local/share/crawl
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the config directory of crawl.
// On Linux: ~/.config/crawl
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid and returns the first
// problem found.
func (c *Config) Validate() error {
	if c.Target == "" {
		return ErrNoTarget
	}
	if c.Depth < 0 {
		return ErrInvalidDepth
	}
	if c.Threads <= 0 {
		return ErrInvalidThreads
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.MaxTokenSize < 0 {
		return ErrInvalidMaxTokenSize
	}
	if c.LogFormat != LogFormatText && c.LogFormat != LogFormatJSON {
		return ErrInvalidLogFormat
	}
	if c.IndexEnabled && c.IndexDir == "" {
		return ErrNoIndexDir
	}
	return nil
}
