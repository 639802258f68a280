// Package crawl drives the primary-plus-subpage crawl of a single site
// and classifies its outcome for the pipeline.
package crawl

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/leadforge/contact-crawler/internal/crawler"
	"github.com/leadforge/contact-crawler/internal/extract"
	"github.com/leadforge/contact-crawler/internal/identity"
)

// Config holds engine-level knobs that are not part of each CrawlRequest.
type Config struct {
	// DelayMin/DelayMax bound the jittered pause before each subpage
	// fetch, avoiding request bursts against one site.
	DelayMin time.Duration
	DelayMax time.Duration
}

// Engine orchestrates one crawl: fetch the seed page, decide whether to
// fan out to same-origin subpages, aggregate contact signals, exit early
// once enough have been found.
type Engine struct {
	cfg       Config
	fetcher   crawler.Fetcher
	rotator   *identity.Rotator
	extractor *extract.Extractor
	logger    *zap.Logger

	// pause is indirected so tests run without real sleeps.
	pause func(ctx context.Context, d time.Duration)
}

// NewEngine builds an Engine.
func NewEngine(
	cfg Config,
	fetcher crawler.Fetcher,
	rotator *identity.Rotator,
	extractor *extract.Extractor,
	logger *zap.Logger,
) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		cfg:       cfg,
		fetcher:   fetcher,
		rotator:   rotator,
		extractor: extractor,
		logger:    logger,
		pause:     timerPause,
	}
}

// Crawl runs the full crawl for one request and returns its aggregate
// outcome. Per-page failures never abort the crawl.
func (e *Engine) Crawl(ctx context.Context, req crawler.CrawlRequest) crawler.CrawlOutcome {
	req = withRequestDefaults(req)
	agg := newAggregate(req.MaxStoredVisitedURLs)

	links, err := extract.NewLinkCollector(req.URL, req.MaxLinksPerPage)
	if err != nil {
		return crawler.CrawlOutcome{
			PageErrors: []crawler.PageError{{URL: req.URL, Message: err.Error()}},
		}
	}
	// Seed before extraction so contact pages win the per-page cap.
	links.AddCommonPages()

	primary := e.fetchPage(ctx, req, req.URL)
	agg.markVisited(req.URL)
	primaryFailed := e.mergePage(agg, req.URL, primary, links)

	// Fan-out only follows a rendered seed page; a blocked seed means the
	// whole site is behind the same wall.
	if primary.Kind == crawler.OutcomeHTML && !agg.earlyExit(req.EarlyExitEmailCount) && req.MaxDepth > 1 {
		e.fanOut(ctx, req, agg, links.Links())
	}

	outcome := agg.outcome(!primaryFailed)
	e.logger.Debug("crawl finished",
		zap.String("url", req.URL),
		zap.Int("pages", outcome.PagesCrawled),
		zap.Int("emails", len(outcome.Emails)),
		zap.Bool("needs_rendering", outcome.NeedsRendering),
	)
	return outcome
}

// fanOut fetches subpages with bounded concurrency. Once the early-exit
// threshold is met no further fetch is scheduled; in-flight fetches run to
// completion.
func (e *Engine) fanOut(ctx context.Context, req crawler.CrawlRequest, agg *aggregate, candidates []string) {
	limit := req.MaxSubpages
	if req.MaxLinksPerPage < limit {
		limit = req.MaxLinksPerPage
	}
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	var g errgroup.Group
	g.SetLimit(req.SubpageConcurrency)
	for _, link := range candidates {
		if ctx.Err() != nil || agg.earlyExit(req.EarlyExitEmailCount) {
			break
		}
		if !agg.markVisited(link) {
			continue
		}
		g.Go(func() error {
			e.pause(ctx, jitter(e.cfg.DelayMin, e.cfg.DelayMax))
			outcome := e.fetchPage(ctx, req, link)
			e.mergePage(agg, link, outcome, nil)
			return nil
		})
	}
	_ = g.Wait()
}

func (e *Engine) fetchPage(ctx context.Context, req crawler.CrawlRequest, url string) crawler.FetchOutcome {
	return e.fetcher.Fetch(ctx, crawler.FetchRequest{
		URL:      url,
		Identity: e.rotator.Next(),
		Timeout:  req.FetchTimeout,
	})
}

// mergePage folds one page's outcome into the aggregate and reports
// whether the page terminally failed.
func (e *Engine) mergePage(agg *aggregate, url string, outcome crawler.FetchOutcome, links *extract.LinkCollector) bool {
	switch outcome.Kind {
	case crawler.OutcomeHTML:
		signals := e.extractor.Extract(url, outcome.HTML, links)
		agg.merge(signals)
		return false
	case crawler.OutcomeBlocked:
		agg.recordBlocked(url, outcome.Message)
		return false
	default:
		agg.recordError(url, outcome.Message)
		return true
	}
}

func withRequestDefaults(req crawler.CrawlRequest) crawler.CrawlRequest {
	if req.MaxDepth < 1 {
		req.MaxDepth = 1
	}
	if req.MaxLinksPerPage <= 0 {
		req.MaxLinksPerPage = 50
	}
	if req.MaxSubpages <= 0 {
		req.MaxSubpages = 20
	}
	if req.MaxStoredVisitedURLs <= 0 {
		req.MaxStoredVisitedURLs = 200
	}
	if req.SubpageConcurrency <= 0 {
		req.SubpageConcurrency = 8
	}
	return req
}

func jitter(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + rand.N(max-min)
}

func timerPause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// aggregate is the mutable per-crawl state shared by subpage workers.
type aggregate struct {
	mu             sync.Mutex
	emails         *orderedSet
	facebookURLs   *orderedSet
	visited        *visitLog
	pages          int
	needsRendering bool
	errors         []crawler.PageError
}

func newAggregate(maxVisited int) *aggregate {
	return &aggregate{
		emails:       newOrderedSet(),
		facebookURLs: newOrderedSet(),
		visited:      newVisitLog(maxVisited),
	}
}

func (a *aggregate) merge(signals extract.PageSignals) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pages++
	for _, email := range signals.Emails {
		a.emails.add(email)
	}
	for _, u := range signals.FacebookURLs {
		a.facebookURLs.add(u)
	}
}

func (a *aggregate) recordBlocked(url, message string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.needsRendering = true
	a.errors = append(a.errors, crawler.PageError{URL: url, Message: message})
}

func (a *aggregate) recordError(url, message string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.errors = append(a.errors, crawler.PageError{URL: url, Message: message})
}

func (a *aggregate) earlyExit(threshold int) bool {
	if threshold <= 0 {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.emails.len() >= threshold
}

func (a *aggregate) markVisited(url string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.visited.markIfNew(extract.CleanURL(url))
}

func (a *aggregate) outcome(success bool) crawler.CrawlOutcome {
	a.mu.Lock()
	defer a.mu.Unlock()
	return crawler.CrawlOutcome{
		Success:        success,
		Emails:         a.emails.sorted(),
		FacebookURLs:   a.facebookURLs.sorted(),
		VisitedURLs:    a.visited.sampleCopy(),
		PagesCrawled:   a.pages,
		NeedsRendering: a.needsRendering,
		PageErrors:     a.errors,
	}
}
