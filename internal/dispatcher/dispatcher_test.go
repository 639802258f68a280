package dispatcher

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/leadforge/contact-crawler/internal/clock/system"
	"github.com/leadforge/contact-crawler/internal/crawl"
	"github.com/leadforge/contact-crawler/internal/crawler"
	"github.com/leadforge/contact-crawler/internal/extract"
	"github.com/leadforge/contact-crawler/internal/id/uuid"
	"github.com/leadforge/contact-crawler/internal/identity"
	queuememory "github.com/leadforge/contact-crawler/internal/queue/memory"
	"github.com/leadforge/contact-crawler/internal/worker"
)

type staticFetcher struct{}

func (staticFetcher) Fetch(context.Context, crawler.FetchRequest) crawler.FetchOutcome {
	return crawler.HTMLOutcome(`<a href="mailto:info@acme.io">mail</a>`, 200)
}

func TestDispatcherDrainsQueueAcrossWorkers(t *testing.T) {
	t.Parallel()

	rotator, err := identity.NewRotator(identity.DefaultProfiles, nil)
	require.NoError(t, err)
	engine := crawl.NewEngine(crawl.Config{}, staticFetcher{}, rotator,
		extract.NewExtractor(extract.NewEmailFilter(extract.DefaultFilterConfig())), nil)

	q := queuememory.NewQueue(4)
	cfg := worker.Config{Request: crawler.CrawlRequest{MaxDepth: 1}}
	workers := []*worker.Worker{
		worker.New(q, engine, nil, nil, nil, uuid.NewGenerator(), system.New(), cfg, nil),
		worker.New(q, engine, nil, nil, nil, uuid.NewGenerator(), system.New(), cfg, nil),
	}

	for _, id := range []string{"job-1", "job-2", "job-3"} {
		require.NoError(t, q.Enqueue(context.Background(), crawler.Job{ID: id, URL: "https://acme.io/"}))
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		New(workers).Run(ctx)
	}()

	require.Eventually(t, func() bool {
		return len(q.Results()) == 3
	}, 5*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatcher did not stop after cancel")
	}

	for _, res := range q.Results() {
		require.Equal(t, crawler.StatusCompleted, res.Status)
	}
}
