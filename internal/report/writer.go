package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/nao1215/crawl/internal/crawler"
)

// Writer writes a crawl result in one output format.
type Writer interface {
	// Write outputs the result and returns the number of bytes written.
	Write(result *crawler.Result) (int, error)
}

// Format selects a report format.
type Format int

const (
	// FormatPlain prints one URL per line.
	FormatPlain Format = iota
	// FormatJSON prints the result and its statistics as JSON.
	FormatJSON
	// FormatMarkdown prints a Markdown report.
	FormatMarkdown
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatPlain:
		return "plain"
	case FormatJSON:
		return "json"
	case FormatMarkdown:
		return "markdown"
	default:
		return "unknown"
	}
}

// NewWriter returns the Writer for format. version is embedded in
// formats that carry metadata.
func NewWriter(format Format, output io.Writer, version string) Writer {
	switch format {
	case FormatJSON:
		return NewJSONWriter(output, WithPrettyPrint(), WithVersion(version))
	case FormatMarkdown:
		return NewMarkdownWriter(output)
	default:
		return NewPlainWriter(output)
	}
}

// Create opens path for writing a report, creating parent directories as
// needed. The file is created with owner-only permissions because crawled
// URLs may carry session tokens.
func Create(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // User-provided output path is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}
