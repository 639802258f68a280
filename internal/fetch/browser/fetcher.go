// Package browser implements the headless-browser fetch strategy using
// chromedp. It is used for targets that block plain HTTP fetches.
package browser

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	fetchproto "github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/leadforge/contact-crawler/internal/browserpool"
	"github.com/leadforge/contact-crawler/internal/crawler"
)

// Config controls the headless fetcher.
type Config struct {
	NavTimeout time.Duration
	// BlockedResourceTypes are skipped during page load to cut render
	// time; defaults to image, media, font, and stylesheet.
	BlockedResourceTypes []string
}

// Fetcher implements crawler.Fetcher by rendering pages in a pooled
// browser context and returning the rendered DOM.
type Fetcher struct {
	cfg     Config
	pool    *browserpool.Pool
	logger  *zap.Logger
	blocked map[network.ResourceType]struct{}
}

// New builds a Fetcher on top of the shared context pool.
func New(cfg Config, pool *browserpool.Pool, logger *zap.Logger) *Fetcher {
	if cfg.NavTimeout <= 0 {
		cfg.NavTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	types := cfg.BlockedResourceTypes
	if len(types) == 0 {
		types = []string{"image", "media", "font", "stylesheet"}
	}
	blocked := make(map[network.ResourceType]struct{}, len(types))
	for _, t := range types {
		blocked[network.ResourceType(capitalize(t))] = struct{}{}
	}
	return &Fetcher{
		cfg:     cfg,
		pool:    pool,
		logger:  logger,
		blocked: blocked,
	}
}

// Fetch renders the page and returns a tagged outcome. A navigation
// timeout is retried once with a doubled timeout on a fresh context.
func (f *Fetcher) Fetch(ctx context.Context, request crawler.FetchRequest) crawler.FetchOutcome {
	timeout := request.Timeout
	if timeout <= 0 {
		timeout = f.cfg.NavTimeout
	}

	html, status, err := f.runOnce(ctx, request, timeout)
	if err != nil && isNavTimeout(err) && ctx.Err() == nil {
		f.logger.Debug("navigation timeout, retrying with doubled timeout",
			zap.String("url", request.URL),
			zap.Duration("timeout", timeout),
		)
		html, status, err = f.runOnce(ctx, request, timeout*2)
	}
	if err != nil {
		if browserpool.IsDisconnect(err) {
			f.logger.Warn("browser engine disconnect detected", zap.Error(err))
			f.pool.Invalidate()
			crawler.TotalFetchFailures.Inc()
			return crawler.FailureOutcome(fmt.Sprintf("browser engine disconnected: %v", err))
		}
		if isNavTimeout(err) {
			crawler.TotalBlockedHits.Inc()
			return crawler.BlockedOutcome(fmt.Sprintf("navigation timed out after retry: %v", err), 0)
		}
		crawler.TotalFetchFailures.Inc()
		return crawler.FailureOutcome(err.Error())
	}

	switch status {
	case http.StatusForbidden, http.StatusTooManyRequests:
		crawler.TotalBlockedHits.Inc()
		return crawler.BlockedOutcome(fmt.Sprintf("status %d from rendered navigation", status), status)
	case http.StatusNotFound:
		crawler.TotalFetchFailures.Inc()
		return crawler.NotFoundOutcome()
	}
	if status == 0 {
		status = http.StatusOK
	}
	crawler.TotalPagesFetched.Inc()
	return crawler.HTMLOutcome(html, status)
}

// runOnce performs a single render attempt. The acquired context handle is
// released on every exit path.
func (f *Fetcher) runOnce(ctx context.Context, request crawler.FetchRequest, timeout time.Duration) (string, int, error) {
	handle, err := f.pool.Acquire(ctx)
	if err != nil {
		return "", 0, err
	}
	defer f.pool.Release(handle)

	navCtx, cancel := context.WithTimeout(handle.Ctx, timeout)
	defer cancel()
	stopForward := forwardCancel(ctx, cancel)
	defer stopForward()

	meta := newResponseMeta()
	chromedp.ListenTarget(navCtx, meta.captureEvent)
	f.interceptRequests(navCtx)

	var html string
	tasks := chromedp.Tasks{
		fetchproto.Enable(),
		network.Enable(),
		f.identityAction(request.Identity),
		chromedp.Navigate(request.URL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	}
	if err := chromedp.Run(navCtx, tasks); err != nil {
		// A timed-out CDP session cannot be handed back to the pool.
		handle.MarkDamaged()
		return "", 0, fmt.Errorf("chromedp run: %w", err)
	}

	status, _ := meta.snapshot()
	return html, status, nil
}

// interceptRequests wires the resource-blocking predicate into the CDP
// request lifecycle.
func (f *Fetcher) interceptRequests(navCtx context.Context) {
	chromedp.ListenTarget(navCtx, func(ev any) {
		paused, ok := ev.(*fetchproto.EventRequestPaused)
		if !ok {
			return
		}
		go func() {
			c := chromedp.FromContext(navCtx)
			if c == nil {
				return
			}
			execCtx := cdp.WithExecutor(navCtx, c.Target)
			if f.shouldBlock(paused.ResourceType) {
				_ = fetchproto.FailRequest(paused.RequestID, network.ErrorReasonBlockedByClient).Do(execCtx)
				return
			}
			_ = fetchproto.ContinueRequest(paused.RequestID).Do(execCtx)
		}()
	})
}

// shouldBlock is the pure predicate deciding whether a resource type is
// skipped during rendering.
func (f *Fetcher) shouldBlock(t network.ResourceType) bool {
	_, blocked := f.blocked[t]
	return blocked
}

func (f *Fetcher) identityAction(id crawler.Identity) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if id.UserAgent != "" {
			if err := emulation.SetUserAgentOverride(id.UserAgent).Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
		}
		headers := network.Headers{}
		if id.AcceptLanguage != "" {
			headers["Accept-Language"] = id.AcceptLanguage
		}
		if id.Referer != "" {
			headers["Referer"] = id.Referer
		}
		if len(headers) > 0 {
			if err := network.SetExtraHTTPHeaders(headers).Do(ctx); err != nil {
				return fmt.Errorf("set extra headers: %w", err)
			}
		}
		return nil
	})
}

func isNavTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) ||
		strings.Contains(err.Error(), "context deadline exceeded")
}

// responseMeta captures the status of the main document navigation.
type responseMeta struct {
	once   sync.Once
	mu     sync.Mutex
	status int
	url    string
}

func newResponseMeta() *responseMeta {
	return &responseMeta{}
}

func (m *responseMeta) captureEvent(ev any) {
	resp, ok := ev.(*network.EventResponseReceived)
	if !ok || resp.Type != network.ResourceTypeDocument || resp.Response == nil {
		return
	}
	m.once.Do(func() {
		m.mu.Lock()
		m.status = int(resp.Response.Status)
		m.url = resp.Response.URL
		m.mu.Unlock()
	})
}

func (m *responseMeta) snapshot() (int, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status, m.url
}

func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
