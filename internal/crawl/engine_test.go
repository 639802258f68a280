package crawl

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/leadforge/contact-crawler/internal/crawler"
	"github.com/leadforge/contact-crawler/internal/extract"
	"github.com/leadforge/contact-crawler/internal/identity"
)

type fakeFetcher struct {
	mu    sync.Mutex
	calls []string
	fetch func(url string) crawler.FetchOutcome
}

func (f *fakeFetcher) Fetch(_ context.Context, req crawler.FetchRequest) crawler.FetchOutcome {
	f.mu.Lock()
	f.calls = append(f.calls, req.URL)
	f.mu.Unlock()
	return f.fetch(req.URL)
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newTestEngine(t *testing.T, fetcher crawler.Fetcher) *Engine {
	t.Helper()
	rotator, err := identity.NewRotator(identity.DefaultProfiles, nil)
	require.NoError(t, err)
	extractor := extract.NewExtractor(extract.NewEmailFilter(extract.DefaultFilterConfig()))
	e := NewEngine(Config{}, fetcher, rotator, extractor, nil)
	e.pause = func(context.Context, time.Duration) {}
	return e
}

func baseRequest(url string) crawler.CrawlRequest {
	return crawler.CrawlRequest{
		URL:                  url,
		MaxDepth:             2,
		MaxSubpages:          20,
		MaxLinksPerPage:      50,
		MaxStoredVisitedURLs: 200,
		EarlyExitEmailCount:  3,
		SubpageConcurrency:   4,
		FetchTimeout:         time.Second,
	}
}

func TestCrawlSeedPageWithMailto(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{fetch: func(url string) crawler.FetchOutcome {
		if url == "https://acme.com/" {
			return crawler.HTMLOutcome(`<html><body>
				<a href="mailto:info@acme-bakery.com">Email</a>
			</body></html>`, 200)
		}
		return crawler.NotFoundOutcome()
	}}
	engine := newTestEngine(t, fetcher)

	outcome := engine.Crawl(context.Background(), baseRequest("https://acme.com/"))

	require.True(t, outcome.Success)
	require.False(t, outcome.NeedsRendering)
	require.Equal(t, []string{"info@acme-bakery.com"}, outcome.Emails)
	require.GreaterOrEqual(t, outcome.PagesCrawled, 1)
}

func TestCrawlAlwaysBlockedSetsNeedsRendering(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{fetch: func(string) crawler.FetchOutcome {
		return crawler.BlockedOutcome("status 403", 403)
	}}
	engine := newTestEngine(t, fetcher)

	outcome := engine.Crawl(context.Background(), baseRequest("https://walled.example/"))

	require.True(t, outcome.Success, "blocked is transient, not terminal")
	require.True(t, outcome.NeedsRendering)
	require.Empty(t, outcome.Emails)
	require.Equal(t, 1, fetcher.callCount(), "blocked seed page yields no links to fan out")
}

func TestCrawlPrimaryTerminalFailure(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{fetch: func(string) crawler.FetchOutcome {
		return crawler.FailureOutcome("dns lookup failed")
	}}
	engine := newTestEngine(t, fetcher)

	outcome := engine.Crawl(context.Background(), baseRequest("https://gone.example/"))

	require.False(t, outcome.Success)
	require.Empty(t, outcome.Emails)
	require.Equal(t, 1, fetcher.callCount(), "terminal seed failure stops the crawl")
	require.Len(t, outcome.PageErrors, 1)
}

func TestCrawlEarlyExitStopsScheduling(t *testing.T) {
	t.Parallel()

	// The seed page links out to many subpages; every page carries three
	// distinct emails, so the threshold is met after the first page.
	var links string
	for i := 0; i < 40; i++ {
		links += fmt.Sprintf(`<a href="/page-%d">p</a>`, i)
	}
	seed := fmt.Sprintf(`<html><body>
		<p>ann@acme-bakery.com bob@acme-bakery.com cal@acme-bakery.com</p>
		%s</body></html>`, links)

	fetcher := &fakeFetcher{fetch: func(url string) crawler.FetchOutcome {
		if url == "https://acme.com/" {
			return crawler.HTMLOutcome(seed, 200)
		}
		return crawler.HTMLOutcome(`<p>x9@acme-bakery.com</p>`, 200)
	}}
	engine := newTestEngine(t, fetcher)

	req := baseRequest("https://acme.com/")
	outcome := engine.Crawl(context.Background(), req)

	require.GreaterOrEqual(t, len(outcome.Emails), 3)
	require.Equal(t, 1, fetcher.callCount(), "threshold met on seed page prevents fan-out")
}

func TestCrawlFanOutRespectsSubpageCap(t *testing.T) {
	t.Parallel()

	var links string
	for i := 0; i < 45; i++ {
		links += fmt.Sprintf(`<a href="/page-%d">p</a>`, i)
	}
	seed := fmt.Sprintf(`<html><body>%s</body></html>`, links)

	var subpages atomic.Int64
	fetcher := &fakeFetcher{fetch: func(url string) crawler.FetchOutcome {
		if url != "https://acme.com/" {
			subpages.Add(1)
		}
		return crawler.HTMLOutcome(seed, 200)
	}}
	engine := newTestEngine(t, fetcher)

	req := baseRequest("https://acme.com/")
	req.EarlyExitEmailCount = 0 // never exit early
	req.MaxSubpages = 5
	outcome := engine.Crawl(context.Background(), req)

	require.Equal(t, 5, int(subpages.Load()))
	require.True(t, outcome.Success)
	require.Equal(t, outcome.PagesCrawled, fetcher.callCount())
}

func TestCrawlDepthOneSkipsFanOut(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{fetch: func(string) crawler.FetchOutcome {
		return crawler.HTMLOutcome(`<a href="/deeper">go</a>`, 200)
	}}
	engine := newTestEngine(t, fetcher)

	req := baseRequest("https://acme.com/")
	req.MaxDepth = 1
	engine.Crawl(context.Background(), req)

	require.Equal(t, 1, fetcher.callCount())
}

func TestCrawlVisitedSampleCapped(t *testing.T) {
	t.Parallel()

	var links string
	for i := 0; i < 30; i++ {
		links += fmt.Sprintf(`<a href="/page-%d">p</a>`, i)
	}
	fetcher := &fakeFetcher{fetch: func(string) crawler.FetchOutcome {
		return crawler.HTMLOutcome(fmt.Sprintf(`<html><body>%s</body></html>`, links), 200)
	}}
	engine := newTestEngine(t, fetcher)

	req := baseRequest("https://acme.com/")
	req.EarlyExitEmailCount = 0
	req.MaxStoredVisitedURLs = 5
	outcome := engine.Crawl(context.Background(), req)

	require.Len(t, outcome.VisitedURLs, 5)
	require.Equal(t, "https://acme.com/", outcome.VisitedURLs[0])
}

func TestCrawlInvalidSeedURL(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{fetch: func(string) crawler.FetchOutcome {
		return crawler.HTMLOutcome("", 200)
	}}
	engine := newTestEngine(t, fetcher)

	outcome := engine.Crawl(context.Background(), baseRequest("::not-a-url::"))
	require.False(t, outcome.Success)
	require.Len(t, outcome.PageErrors, 1)
	require.Zero(t, fetcher.callCount())
}
