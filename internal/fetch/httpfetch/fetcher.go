// Package httpfetch implements the lightweight HTTP fetch strategy using
// the Colly collector.
package httpfetch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/leadforge/contact-crawler/internal/crawler"
)

// Config controls fetch behavior.
type Config struct {
	Timeout           time.Duration
	MaxRetries        int
	BackoffBase       time.Duration
	MaxBodyBytes      int
	RequestsPerSecond float64
}

// Fetcher performs plain HTTP GETs with browser-like headers, retrying
// transient failures (403, 429, timeouts) with exponential backoff. It
// never returns a Go error: every attempt sequence ends in exactly one
// tagged FetchOutcome.
type Fetcher struct {
	cfg       Config
	transport http.RoundTripper
	limiter   *rate.Limiter
	logger    *zap.Logger

	// sleep is indirected so tests can assert backoff without waiting.
	sleep func(ctx context.Context, d time.Duration) error
}

// New builds a Fetcher.
func New(cfg Config, logger *zap.Logger) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = 500 * time.Millisecond
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 2 << 20
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return &Fetcher{
		cfg:       cfg,
		transport: newHTTPTransport(),
		limiter:   limiter,
		logger:    logger,
		sleep:     timerSleep,
	}
}

// Fetch runs the attempt sequence for one URL and returns its outcome.
func (f *Fetcher) Fetch(ctx context.Context, request crawler.FetchRequest) crawler.FetchOutcome {
	timeout := request.Timeout
	if timeout <= 0 {
		timeout = f.cfg.Timeout
	}

	var (
		lastStatus int
		lastErr    error
	)
	for attempt := 0; attempt <= f.cfg.MaxRetries; attempt++ {
		if f.limiter != nil {
			if err := f.limiter.Wait(ctx); err != nil {
				return crawler.FailureOutcome(fmt.Sprintf("rate limit wait: %v", err))
			}
		}
		if attempt > 0 {
			crawler.TotalFetchRetries.Inc()
			backoff := f.cfg.BackoffBase * (1 << (attempt - 1))
			if err := f.sleep(ctx, backoff); err != nil {
				return crawler.FailureOutcome(fmt.Sprintf("backoff wait: %v", err))
			}
		}

		html, status, err := f.attempt(ctx, request, timeout)
		if err == nil {
			crawler.TotalPagesFetched.Inc()
			return crawler.HTMLOutcome(html, status)
		}
		lastStatus, lastErr = status, err

		if !isTransient(status, err) {
			crawler.TotalFetchFailures.Inc()
			if status == http.StatusNotFound {
				return crawler.NotFoundOutcome()
			}
			return crawler.FailureOutcome(err.Error())
		}
		f.logger.Debug("transient fetch failure",
			zap.String("url", request.URL),
			zap.Int("status", status),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}

	// Retries exhausted on a transient-class failure: the target likely
	// needs heavier rendering.
	crawler.TotalBlockedHits.Inc()
	return crawler.BlockedOutcome(lastErr.Error(), lastStatus)
}

func (f *Fetcher) attempt(ctx context.Context, request crawler.FetchRequest, timeout time.Duration) (string, int, error) {
	collector, err := f.newCollector(request, timeout)
	if err != nil {
		return "", 0, err
	}

	var (
		html     string
		status   int
		fetchErr error
	)
	collector.OnRequest(func(r *colly.Request) {
		applyIdentityHeaders(r, request.Identity)
	})
	collector.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		ct := strings.ToLower(r.Headers.Get("Content-Type"))
		if ct != "" && !strings.Contains(ct, "html") {
			fetchErr = fmt.Errorf("non-html content type %q", ct)
			return
		}
		html = string(r.Body)
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
		fetchErr = err
	})

	// The visit goroutine owns html/status/fetchErr until it sends them
	// over done; the ctx branch must not touch them.
	done := make(chan attemptResult, 1)
	go func() {
		visitErr := collector.Visit(request.URL)
		switch {
		case fetchErr != nil:
			done <- attemptResult{status: status, err: fmt.Errorf("fetch %s: %w", request.URL, fetchErr)}
		case visitErr != nil:
			done <- attemptResult{status: status, err: fmt.Errorf("visit %s: %w", request.URL, visitErr)}
		default:
			done <- attemptResult{html: html, status: status}
		}
	}()

	select {
	case <-ctx.Done():
		return "", 0, fmt.Errorf("fetch canceled: %w", ctx.Err())
	case res := <-done:
		return res.html, res.status, res.err
	}
}

type attemptResult struct {
	html   string
	status int
	err    error
}

func (f *Fetcher) newCollector(request crawler.FetchRequest, timeout time.Duration) (*colly.Collector, error) {
	c := colly.NewCollector(
		colly.Async(false),
		colly.MaxBodySize(f.cfg.MaxBodyBytes),
		colly.IgnoreRobotsTxt(),
	)
	c.SetRequestTimeout(timeout)
	if request.Identity.UserAgent != "" {
		c.UserAgent = request.Identity.UserAgent
	}
	if request.Identity.Proxy != "" {
		proxyURL, err := url.Parse(request.Identity.Proxy)
		if err != nil {
			return nil, fmt.Errorf("parse proxy url: %w", err)
		}
		c.WithTransport(newProxyTransport(proxyURL))
	} else {
		c.WithTransport(f.transport)
	}
	return c, nil
}

func applyIdentityHeaders(r *colly.Request, id crawler.Identity) {
	r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	r.Headers.Set("Upgrade-Insecure-Requests", "1")
	if id.AcceptLanguage != "" {
		r.Headers.Set("Accept-Language", id.AcceptLanguage)
	}
	if id.Referer != "" {
		r.Headers.Set("Referer", id.Referer)
	}
}

// isTransient classifies 403, 429, and timeout-class failures as
// retry-worthy; everything else is terminal immediately.
func isTransient(status int, err error) bool {
	if status == http.StatusForbidden || status == http.StatusTooManyRequests {
		return true
	}
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return strings.Contains(err.Error(), "Client.Timeout")
}

func timerSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		ForceAttemptHTTP2:     true,
	}
}

func newProxyTransport(proxyURL *url.URL) *http.Transport {
	t := newHTTPTransport()
	t.Proxy = http.ProxyURL(proxyURL)
	return t
}
