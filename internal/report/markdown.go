package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/crawl/internal/crawler"
	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

// MarkdownWriter outputs results as a GitHub Flavored Markdown report.
//
// Design decision: We build the document with nao1215/markdown instead of
// formatting strings by hand, so tables, alerts and the mermaid page chart
// are escaped and laid out consistently.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the result in Markdown format.
func (w *MarkdownWriter) Write(result *crawler.Result) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, result)
	w.writeOutcome(md, result.Stats)
	w.writeURLs(md, result.URLs)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the title and the crawl parameters.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, result *crawler.Result) {
	md.H1("Crawl Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Seed", "`" + result.Seed + "`"},
			{"Max Depth", strconv.Itoa(result.Stats.MaxDepth)},
			{"Max Threads", strconv.Itoa(result.Stats.MaxThreads)},
			{"Elapsed", fmt.Sprintf("%.3fs", result.Stats.Elapsed.Seconds())},
			{"URLs Recorded", strconv.Itoa(len(result.URLs))},
		},
	})
	md.PlainText("")
}

// writeOutcome writes page statistics and a failure alert.
func (w *MarkdownWriter) writeOutcome(md *markdown.Markdown, stats crawler.Stats) {
	md.H2("Pages")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Outcome", "Count"},
		Rows: [][]string{
			{"Fetched", strconv.Itoa(stats.PagesFetched)},
			{"Fetch failures", strconv.Itoa(stats.FetchFailures)},
			{"Extraction failures", strconv.Itoa(stats.ExtractionFailures)},
			{"Index failures", strconv.Itoa(stats.IndexFailures)},
			{"Rejected links", strconv.Itoa(stats.LinksRejected)},
		},
	})
	md.PlainText("")

	if stats.PagesFetched+stats.FetchFailures > 0 {
		chart := piechart.NewPieChart(
			io.Discard,
			piechart.WithTitle("Page Outcomes"),
			piechart.WithShowData(true),
		)
		if stats.PagesFetched > 0 {
			chart.LabelAndIntValue("Fetched", uint64(stats.PagesFetched))
		}
		if stats.FetchFailures > 0 {
			chart.LabelAndIntValue("Failed", uint64(stats.FetchFailures))
		}
		md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
		md.PlainText("")
	}

	if stats.FetchFailures > 0 {
		md.Warningf("%d page(s) could not be fetched. Run with --verbose for details.", stats.FetchFailures)
		md.PlainText("")
	}
}

// writeURLs writes the recorded URLs.
func (w *MarkdownWriter) writeURLs(md *markdown.Markdown, urls []string) {
	md.H2("URLs")
	md.PlainText("")

	if len(urls) == 0 {
		md.PlainText("No URLs recorded.")
		md.PlainText("")
		return
	}

	md.BulletList(urls...)
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainText("*Report generated by [crawl](https://github.com/nao1215/crawl)*")
}
