package main

import (
	"fmt"
	"strings"

	"github.com/nao1215/crawl/internal/config"
	"github.com/nao1215/crawl/internal/index"
	"github.com/spf13/cobra"
)

// NewSearchCmd creates the search command.
func NewSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <term>...",
		Short: "Search pages stored by previous crawls",
		Long: `Search queries the full-text index built by previous crawls without
crawling again. Every word of the term must appear in a page for it to match.
Hits are ranked by relevance.

Examples:
  # Find pages mentioning both words
  crawl search golang concurrency

  # Search an index kept in another directory
  crawl search --index-dir ./data golang`,
		Args: cobra.MinimumNArgs(1),
		RunE: runSearchCmd,
	}

	cmd.Flags().String("index-dir", config.XDGDataDir(),
		"Directory of the full-text index")
	cmd.Flags().String("field", config.DefaultIndexField,
		"Index field to search")
	cmd.Flags().IntP("limit", "n", index.DefaultSearchLimit,
		"Maximum number of hits")

	return cmd
}

// runSearchCmd executes the search command.
func runSearchCmd(cmd *cobra.Command, args []string) error {
	dir, err := cmd.Flags().GetString("index-dir")
	if err != nil {
		return err
	}
	field, err := cmd.Flags().GetString("field")
	if err != nil {
		return err
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}

	idx, err := index.Open(dir, index.Options{EnableWAL: true, SearchLimit: limit})
	if err != nil {
		return fmt.Errorf("failed to open index (run a crawl first): %w", err)
	}
	defer idx.Close()

	term := streamsOf(cmd)
	n, err := search(cmd.Context(), idx, field, strings.Join(args, " "), term)
	if err != nil || n > 0 {
		return err
	}

	total, err := idx.Count(cmd.Context(), field)
	if err != nil {
		return err
	}
	fmt.Fprintf(term.errOut, "no matches among %d indexed pages in %s\n", total, idx.Path())
	return nil
}
