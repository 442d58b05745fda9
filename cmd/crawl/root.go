package main

import (
	"fmt"
	"os"

	"github.com/nao1215/crawl/internal/config"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command. Running it with a URL starts a crawl.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl <url>",
		Short: "Concurrent, depth-bounded web crawler",
		Long: `crawl visits every page reachable from a seed URL within a link depth and
prints the deduplicated, normalized URLs it found.

Links are normalized before they are queued: the scheme defaults to http,
"www." is dropped from the host, and the query string and trailing slash are
removed. Links whose fragment names anything but an HTML document are skipped.

Fetched pages are stored in a full-text index so they can be searched later
with -i or the search command.

Examples:
  # Crawl the seed and the pages it links to
  crawl https://example.com

  # Follow links three levels deep with 20 workers
  crawl --depth 3 --threads 20 example.com

  # Search the fetched pages afterwards
  crawl -i example.com

  # Crawl through a SOCKS5 proxy and write a Markdown report
  crawl --proxy 127.0.0.1:9050 --markdown -o report.md example.com`,
		Args:          cobra.ArbitraryArgs,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runCrawlCmd,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().String("log-format", config.LogFormatText,
		"Log format: text or json")

	// Crawl behavior flags
	cmd.Flags().IntP("depth", "d", config.DefaultDepth,
		"Maximum link depth (0 fetches only the seed)")
	cmd.Flags().IntP("threads", "t", config.DefaultThreads,
		"Maximum number of concurrent workers")
	cmd.Flags().Duration("timeout", config.DefaultTimeout,
		"Timeout for each page fetch")
	cmd.Flags().String("charset", config.DefaultFallbackCharset,
		"Charset used when a response does not name one")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header sent with every request")
	cmd.Flags().Int64("max-body-size", config.DefaultMaxBodySize,
		"Maximum response body size in bytes")
	cmd.Flags().Int("max-token-size", config.DefaultMaxTokenSize,
		"Maximum bytes buffered for one HTML token (0 means no limit)")

	// Transport flags
	cmd.Flags().String("proxy", "",
		"Route requests through the SOCKS5 proxy at host:port")
	cmd.Flags().StringArrayP("header", "H", nil,
		"Extra request header as \"Name: value\" (repeatable)")

	// Index flags
	cmd.Flags().BoolP("interactive", "i", false,
		"Search the index interactively after the crawl")
	cmd.Flags().String("index-dir", config.XDGDataDir(),
		"Directory of the full-text index")
	cmd.Flags().Bool("no-index", false,
		"Do not store fetched pages in the index")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	cmd.Flags().String("metrics-addr", "",
		"Serve Prometheus metrics on this address during the crawl")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .crawl.yaml in current or home directory)")

	cmd.AddCommand(NewSearchCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
