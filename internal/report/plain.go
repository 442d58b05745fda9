package report

import (
	"io"
	"strings"

	"github.com/nao1215/crawl/internal/crawler"
)

// PlainWriter prints every recorded URL on its own line, in sorted order.
// Its output is meant to be piped into other tools.
type PlainWriter struct {
	baseWriter
}

// NewPlainWriter creates a PlainWriter that outputs to the given writer.
func NewPlainWriter(output io.Writer) *PlainWriter {
	return &PlainWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs one URL per line.
func (w *PlainWriter) Write(result *crawler.Result) (int, error) {
	var sb strings.Builder
	for _, u := range result.URLs {
		sb.WriteString(u)
		sb.WriteByte('\n')
	}
	return io.WriteString(w.output, sb.String())
}
