package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wafprobe/wafprobe/internal/sink"
	"github.com/wafprobe/wafprobe/internal/source"
	"github.com/wafprobe/wafprobe/internal/waf"
)

var checkConfig CLIConfig

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check a batch of URLs for WAF/CDN protection",
	Long: `Check whether URLs are protected by a WAF or fronted by a CDN edge.

URLs come either from a local file (--urls-file, one per line) or from the
Route 53 hosted zones reachable with the ambient AWS credentials. Each URL is
probed via DNS (TXT, CNAME, A records) and a single HTTP GET; matched
indicators are tallied into a per-URL vendor verdict. Results are written as
CSV/JSON locally or to the bucket named by S3_BUCKET.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCheck(cmd.Context())
	},
}

func runCheck(parent context.Context) error {
	cfg := checkConfig
	cfg.resolveStorage()

	format, err := sink.ParseFormat(cfg.OutputFormat)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	urls, err := loadURLs(ctx, cfg)
	if err != nil {
		return err
	}
	if len(urls) == 0 {
		fmt.Println(colorWarn("No URLs found to check."))
		return nil
	}

	checker, err := waf.NewChecker(waf.Options{
		Timeout:      time.Duration(cfg.TimeoutSecs) * time.Second,
		Retries:      cfg.Retries,
		MaxRedirects: defaultMaxRedirects,
		MaxBodyBytes: defaultMaxBodyBytes,
		Resolvers:    defaultResolvers,
	}, waf.NewRegistry(), logger)
	if err != nil {
		return fmt.Errorf("build checker: %w", err)
	}

	logger.Infow("starting waf check", "urls", len(urls), "concurrency", cfg.Concurrency)

	var done atomic.Int64
	runner := &waf.Runner{Concurrency: cfg.Concurrency, Delay: cfg.Delay}
	results := runner.Run(ctx, urls, checker, func(result waf.CheckResult) {
		n := done.Add(1)
		verdict := colorWarn("no waf")
		if result.WAFDetected {
			verdict = colorSuccess(result.WAFVendor)
		}
		if result.Error != "" {
			verdict += " " + colorError("(error)")
		}
		fmt.Printf("[%d/%d] %s %s\n", n, len(urls), result.URL, verdict)
	})

	if ctx.Err() != nil {
		logger.Warnw("check interrupted", "completed", len(results), "total", len(urls))
	}

	// A fresh context so an interrupt does not also lose the results that
	// were already produced.
	writer := buildResultWriter(context.Background(), cfg.S3Bucket)
	if err := writer.Save(context.Background(), results, format); err != nil {
		return err
	}

	printSummary(results)
	return nil
}

// newUploader is swapped out in tests.
var newUploader = func(ctx context.Context, bucket string) (sink.Uploader, error) {
	return sink.NewS3Uploader(ctx, bucket, logger)
}

// buildResultWriter returns the sink for a finished batch. When the S3
// uploader cannot be built the batch must not be lost, so the writer falls
// back to local-only storage.
func buildResultWriter(ctx context.Context, bucket string) *sink.Writer {
	writer := &sink.Writer{OutputDir: outputDir, Logger: logger}
	if bucket == "" {
		return writer
	}
	uploader, err := newUploader(ctx, bucket)
	if err != nil {
		logger.Warnw("s3 uploader unavailable, writing results locally", "bucket", bucket, "error", err)
		return writer
	}
	writer.Uploader = uploader
	return writer
}

func loadURLs(ctx context.Context, cfg CLIConfig) ([]string, error) {
	if cfg.URLsFile != "" {
		logger.Infow("loading urls", "file", cfg.URLsFile)
		return source.LoadFile(cfg.URLsFile, cfg.MaxURLs, logger)
	}
	logger.Info("listing urls from route53")
	lister, err := source.NewRoute53Lister(ctx, logger)
	if err != nil {
		return nil, err
	}
	return lister.List(ctx, cfg.HostedZoneID, cfg.MaxURLs)
}

func printSummary(results []waf.CheckResult) {
	detected := 0
	for _, r := range results {
		if r.WAFDetected {
			detected++
		}
	}
	fmt.Println(colorSuccess("Check complete."))
	fmt.Printf("%s %d\n", colorInfo("Total URLs:"), len(results))
	fmt.Printf("%s %d\n", colorInfo("WAF detected:"), detected)
	fmt.Printf("%s %d\n", colorInfo("No WAF:"), len(results)-detected)
}

func init() {
	checkCmd.Flags().StringVar(&checkConfig.URLsFile, "urls-file", "", "file with URLs to check, one per line (default: list Route 53 zones)")
	checkCmd.Flags().IntVar(&checkConfig.MaxURLs, "max-urls", 0, "maximum number of URLs to check (0 = no limit)")
	checkCmd.Flags().StringVar(&checkConfig.HostedZoneID, "hosted-zone-id", "", "specific Route 53 hosted zone ID")
	checkCmd.Flags().StringVar(&checkConfig.OutputFormat, "output-format", "both", "output format: csv, json or both")
	checkCmd.Flags().BoolVar(&checkConfig.LocalStorage, "local-storage", false, "write results locally instead of uploading to S3")
	checkCmd.Flags().IntVar(&checkConfig.Concurrency, "concurrency", defaultConcurrency, "number of concurrent checks")
	checkCmd.Flags().DurationVar(&checkConfig.Delay, "delay", defaultDelay, "pause between checks")
	checkCmd.Flags().IntVar(&checkConfig.TimeoutSecs, "timeout", defaultHTTPTimeoutSeconds, "HTTP timeout in seconds")
	checkCmd.Flags().IntVar(&checkConfig.Retries, "retries", defaultHTTPRetries, "HTTP/DNS retry attempts")
}
