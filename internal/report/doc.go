// Package report writes crawl results.
//
// Three formats are available through the Writer interface:
//   - PlainWriter: one URL per line, suitable for pipes
//   - JSONWriter: the result with its statistics for tool integration
//   - MarkdownWriter: a report with tables and a mermaid chart
package report
