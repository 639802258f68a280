package crawler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TotalPagesFetched tracks the number of pages fetched with usable HTML.
	TotalPagesFetched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "contactcrawler_pages_fetched_total",
		Help: "The total number of pages fetched with usable HTML content.",
	})
	// TotalFetchFailures tracks terminal per-page fetch failures.
	TotalFetchFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "contactcrawler_fetch_failures_total",
		Help: "The total number of terminal page fetch failures.",
	})
	// TotalBlockedHits tracks fetches that ended blocked (403/429/timeout).
	TotalBlockedHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "contactcrawler_blocked_hits_total",
		Help: "The total number of fetches classified as blocked.",
	})
	// TotalFetchRetries tracks transient-failure retries with backoff.
	TotalFetchRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "contactcrawler_fetch_retries_total",
		Help: "The total number of fetch retries after transient failures.",
	})
	// TotalEmailsFound tracks emails that survived the junk filter.
	TotalEmailsFound = promauto.NewCounter(prometheus.CounterOpts{
		Name: "contactcrawler_emails_found_total",
		Help: "The total number of emails extracted after junk filtering.",
	})
	// CrawlsByStatus tracks finished crawls partitioned by classification.
	CrawlsByStatus = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "contactcrawler_crawls_total",
		Help: "The total number of finished crawls by pipeline status.",
	}, []string{"status"})
)
