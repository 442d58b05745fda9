package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nao1215/crawl/internal/config"
	"github.com/nao1215/crawl/internal/crawler"
	"github.com/nao1215/crawl/internal/index"
	"github.com/nao1215/crawl/internal/log"
	"github.com/nao1215/crawl/internal/metrics"
	"github.com/nao1215/crawl/internal/report"
	"github.com/nao1215/crawl/internal/transport"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// metricsShutdownTimeout bounds the shutdown of the metrics endpoint.
const metricsShutdownTimeout = 5 * time.Second

// streams are the terminal streams of a command.
type streams struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer
}

// streamsOf returns the streams of cmd, which tests can redirect.
func streamsOf(cmd *cobra.Command) streams {
	return streams{in: cmd.InOrStdin(), out: cmd.OutOrStdout(), errOut: cmd.ErrOrStderr()}
}

// runCrawlCmd executes the root command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	term := streamsOf(cmd)
	logger := newLogger(cfg, term.errOut)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runCrawl(ctx, cfg, term, logger)
}

// newLogger creates the logger selected by cfg.LogFormat.
func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	if cfg.LogFormat == config.LogFormatJSON {
		return log.NewSecureJSONLogger(w, cfg.Verbose)
	}
	return log.NewSecureLogger(w, cfg.Verbose)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from defaults, the configuration file and
// the flags the user set. Flags left at their default do not override the
// configuration file.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	cfg.ConfigFilePath, err = flags.GetString("config")
	if err != nil {
		return nil, err
	}

	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		cf, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		if err := cf.Apply(cfg); err != nil {
			return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
		}
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	if flags.Changed("depth") {
		if cfg.Depth, err = flags.GetInt("depth"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("threads") {
		if cfg.Threads, err = flags.GetInt("threads"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("timeout") {
		if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("charset") {
		if cfg.FallbackCharset, err = flags.GetString("charset"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("user-agent") {
		if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("max-body-size") {
		if cfg.MaxBodySize, err = flags.GetInt64("max-body-size"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("max-token-size") {
		if cfg.MaxTokenSize, err = flags.GetInt("max-token-size"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("proxy") {
		if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
			return nil, err
		}
	}
	headers, err := flags.GetStringArray("header")
	if err != nil {
		return nil, err
	}
	cfg.Headers = append(cfg.Headers, headers...)

	if flags.Changed("index-dir") {
		if cfg.IndexDir, err = flags.GetString("index-dir"); err != nil {
			return nil, err
		}
	}
	noIndex, err := flags.GetBool("no-index")
	if err != nil {
		return nil, err
	}
	if noIndex {
		cfg.IndexEnabled = false
	}
	if flags.Changed("metrics-addr") {
		if cfg.MetricsAddress, err = flags.GetString("metrics-addr"); err != nil {
			return nil, err
		}
	}

	if cfg.Interactive, err = flags.GetBool("interactive"); err != nil {
		return nil, err
	}
	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	cfg.Verbose = getVerboseFlag(cmd)
	if f := cmd.Flag("log-format"); f != nil && f.Changed {
		cfg.LogFormat = f.Value.String()
	}

	if len(args) > 0 {
		cfg.Target = strings.TrimSpace(args[len(args)-1])
	}
	return cfg, nil
}

// runCrawl crawls cfg.Target, writes the report and optionally starts the
// interactive search.
func runCrawl(ctx context.Context, cfg *config.Config, term streams, logger *slog.Logger) error {
	fetcher, err := newFetcher(ctx, cfg)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	if cfg.MetricsAddress != "" {
		srv, err := metrics.Listen(cfg.MetricsAddress, reg, logger)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("failed to stop metrics server", "error", err)
			}
		}()
	}

	opts := []crawler.SchedulerOption{
		crawler.WithMaxDepth(cfg.Depth),
		crawler.WithMaxThreads(cfg.Threads),
		crawler.WithIndexField(cfg.IndexField),
		crawler.WithExtractorOptions(crawler.WithMaxTokenSize(cfg.MaxTokenSize)),
		crawler.WithLogger(logger),
		crawler.WithMetrics(m),
	}
	indexed := false
	if cfg.IndexEnabled {
		idx, err := index.Open(cfg.IndexDir, index.DefaultOptions())
		if err != nil {
			logger.Warn("index unavailable, crawling without indexing", "dir", cfg.IndexDir, "error", err)
		} else {
			opts = append(opts, crawler.WithIndexer(idx))
			indexed = true
		}
	}

	result, err := crawler.NewScheduler(fetcher, opts...).Crawl(ctx, cfg.Target)
	if result == nil {
		logger.Error("crawl failed", "error", err)
		return nil
	}
	if err != nil {
		logger.Warn("crawl interrupted, writing partial results", "error", err)
	}

	if err := writeReport(cfg, term, result); err != nil {
		return err
	}

	if !cfg.Interactive || ctx.Err() != nil {
		return nil
	}
	if !indexed {
		logger.Warn("interactive search needs the index")
		return nil
	}
	return runInteractive(ctx, cfg.IndexDir, cfg.IndexField, term)
}

// newFetcher builds the HTTP fetcher, verifying the proxy first if one is set.
func newFetcher(ctx context.Context, cfg *config.Config) (*crawler.HTTPFetcher, error) {
	headers, err := transport.ParseHeaders(cfg.Headers)
	if err != nil {
		return nil, err
	}

	clientOpts := []transport.Option{
		transport.WithHeaders(headers),
		transport.WithTimeout(cfg.Timeout),
	}
	if cfg.ProxyAddress != "" {
		if status := transport.CheckProxy(ctx, cfg.ProxyAddress); status != transport.ProxyStatusOK {
			return nil, fmt.Errorf("proxy check failed for %s: %w", cfg.ProxyAddress, status.Error())
		}
		clientOpts = append(clientOpts, transport.WithProxy(cfg.ProxyAddress))
	}

	client, err := transport.NewHTTPClient(clientOpts...)
	if err != nil {
		return nil, err
	}

	return crawler.NewHTTPFetcher(client,
		crawler.WithFetchTimeout(cfg.Timeout),
		crawler.WithUserAgent(cfg.UserAgent),
		crawler.WithMaxBodySize(cfg.MaxBodySize),
		crawler.WithFallbackCharset(cfg.FallbackCharset),
	), nil
}

// reportFormat maps the report flags to a format.
func reportFormat(cfg *config.Config) report.Format {
	switch {
	case cfg.JSONReport:
		return report.FormatJSON
	case cfg.MarkdownReport:
		return report.FormatMarkdown
	default:
		return report.FormatPlain
	}
}

// writeReport writes result and the elapsed time. The timing line follows
// the URLs on stdout for the plain format and goes to stderr otherwise so
// JSON and Markdown output stay parseable.
func writeReport(cfg *config.Config, term streams, result *crawler.Result) error {
	format := reportFormat(cfg)

	output := term.out
	if cfg.ReportFile != "" {
		f, err := report.Create(cfg.ReportFile)
		if err != nil {
			return err
		}
		defer f.Close()
		output = f
	}

	if _, err := report.NewWriter(format, output, getVersion()).Write(result); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	timing := term.errOut
	if format == report.FormatPlain && cfg.ReportFile == "" {
		timing = term.out
	}
	fmt.Fprintf(timing, "finished in %.3fs\n", result.Stats.Elapsed.Seconds())
	return nil
}
