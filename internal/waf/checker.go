package waf

import (
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/projectdiscovery/retryablehttp-go"
	wappalyzer "github.com/projectdiscovery/wappalyzergo"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// browserHeaders make the probe look like an ordinary browser request so the
// edge answers with its usual headers. Accept-Encoding is left to the
// transport so response bodies arrive decompressed.
var browserHeaders = map[string]string{
	"User-Agent":                "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
	"Accept-Language":           "en-US,en;q=0.5",
	"Connection":                "keep-alive",
	"Upgrade-Insecure-Requests": "1",
}

// Options carries the per-check policy knobs the orchestrator needs.
type Options struct {
	Timeout      time.Duration
	Retries      int
	MaxRedirects int
	MaxBodyBytes int64
	Resolvers    []string
}

type dnsProber interface {
	Collect(ctx context.Context, domain string) DNSProbe
}

// Checker sequences one URL through DNS probing, a single HTTP fetch and
// vendor resolution. All per-URL failures are absorbed here and surface only
// in the result's Error field.
type Checker struct {
	dns        dnsProber
	collector  *HTTPCollector
	httpClient *retryablehttp.Client
	maxBody    int64
	logger     *zap.SugaredLogger
}

// NewChecker wires the collectors and the retrying HTTP client.
func NewChecker(opts Options, registry *Registry, logger *zap.SugaredLogger) (*Checker, error) {
	dnsCollector, err := NewDNSCollector(opts.Resolvers, opts.Retries, registry, logger)
	if err != nil {
		return nil, err
	}

	fingerprint, err := wappalyzer.New()
	if err != nil {
		return nil, err
	}

	httpClient := retryablehttp.NewClient(retryablehttp.Options{
		RetryWaitMin:  1 * time.Second,
		RetryWaitMax:  10 * time.Second,
		Timeout:       opts.Timeout,
		RetryMax:      opts.Retries,
		RespReadLimit: opts.MaxBodyBytes,
		KillIdleConn:  true,
	})
	// Certificate verification is deliberately disabled: firewalled hosts
	// frequently present broken or self-signed chains, and a TLS failure here
	// would read as "no WAF" instead of a verdict.
	httpClient.HTTPClient.Transport = &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
	}
	maxRedirects := opts.MaxRedirects
	httpClient.HTTPClient.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return http.ErrUseLastResponse
		}
		return nil
	}

	return &Checker{
		dns:        dnsCollector,
		collector:  NewHTTPCollector(registry, fingerprint),
		httpClient: httpClient,
		maxBody:    opts.MaxBodyBytes,
		logger:     logger,
	}, nil
}

// CheckOne probes a single URL and assembles its verdict. A failed HTTP fetch
// records the error but keeps any DNS-derived indicators, so a DNS-only
// detection still produces a vendor.
func (c *Checker) CheckOne(ctx context.Context, rawURL string) CheckResult {
	result := CheckResult{URL: rawURL, CheckedAt: time.Now().UTC()}

	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Hostname() == "" {
		result.Error = "invalid url: " + rawURL
		return result
	}

	probe := c.dns.Collect(ctx, parsed.Hostname())
	result.Indicators = append(result.Indicators, probe.Indicators...)
	if probe.TXT == QueryFailed || probe.CNAME == QueryFailed {
		c.logger.Debugw("dns probe incomplete", "url", rawURL)
	}

	if resp, body, elapsed, err := c.fetch(ctx, rawURL); err != nil {
		result.Error = err.Error()
		c.logger.Warnw("http fetch failed", "url", rawURL, "error", err)
	} else {
		result.StatusCode = resp.StatusCode
		result.ResponseTime = elapsed.Seconds()
		result.Indicators = append(result.Indicators, c.collector.Collect(resp, body)...)
	}

	if vendor, ok := ResolveVendor(result.Indicators); ok {
		result.WAFDetected = true
		result.WAFVendor = vendor
	}
	return result
}

func (c *Checker) fetch(ctx context.Context, rawURL string) (*http.Response, []byte, time.Duration, error) {
	req, err := retryablehttp.NewRequest(http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, nil, 0, err
	}
	req.Request = req.Request.WithContext(ctx)
	for name, value := range browserHeaders {
		req.Header.Set(name, value)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, 0, err
	}
	elapsed := time.Since(start)
	defer resp.Body.Close()

	// A body that cannot be read is not a failed check; header and cookie
	// matching still proceed.
	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody))
	if err != nil {
		c.logger.Debugw("body read failed", "url", rawURL, "error", err)
		body = nil
	}
	return resp, body, elapsed, nil
}

// URLChecker is implemented by Checker and by test stubs.
type URLChecker interface {
	CheckOne(ctx context.Context, url string) CheckResult
}

// Runner executes a batch of checks over a fixed pool of worker lanes.
// Concurrency 1 (the default) preserves strictly sequential semantics. Each
// lane paces its own checks by Delay; lanes never serialize each other.
type Runner struct {
	Concurrency int
	Delay       time.Duration
}

// Run checks every URL and returns the produced results. Cancelling the
// context stops scheduling and discards in-flight checks; results already
// produced are kept. Result order follows completion, not submission; every
// result names its source URL.
func (r *Runner) Run(ctx context.Context, urls []string, checker URLChecker, onResult func(CheckResult)) []CheckResult {
	concurrency := r.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	jobs := make(chan string)
	var wg sync.WaitGroup
	var mu sync.Mutex
	results := make([]CheckResult, 0, len(urls))

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			limiter := rate.NewLimiter(rate.Inf, 1)
			if r.Delay > 0 {
				limiter = rate.NewLimiter(rate.Every(r.Delay), 1)
			}

			for target := range jobs {
				if err := limiter.Wait(ctx); err != nil {
					return
				}

				result := checker.CheckOne(ctx, target)
				if ctx.Err() != nil {
					return
				}

				mu.Lock()
				results = append(results, result)
				mu.Unlock()

				if onResult != nil {
					onResult(result)
				}
			}
		}()
	}

feed:
	for _, target := range urls {
		select {
		case jobs <- target:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)

	wg.Wait()
	return results
}
