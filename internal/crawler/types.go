// Package crawler defines core types shared across subsystems: fetch
// outcomes, crawl requests and results, and the interfaces between the
// crawl engine and its collaborators.
package crawler

import "time"

// Identity is one rotation tuple used to vary request fingerprints
// across fetches. An empty Proxy means a direct connection.
type Identity struct {
	UserAgent      string
	AcceptLanguage string
	Referer        string
	Proxy          string
}

// OutcomeKind tags the result of one fetch attempt sequence.
type OutcomeKind int

// Fetch outcome variants. Exactly one applies per attempt sequence.
const (
	// OutcomeHTML means the page was fetched and HTML content is available.
	OutcomeHTML OutcomeKind = iota
	// OutcomeBlocked covers 403/429/timeout-class failures that survived
	// retries; it signals the target may need heavier rendering.
	OutcomeBlocked
	// OutcomeNotFound is a terminal 404.
	OutcomeNotFound
	// OutcomeFailure covers every other terminal failure (DNS, TLS,
	// unexpected status, non-HTML content).
	OutcomeFailure
)

// FetchOutcome is the tagged result of fetching a single page.
type FetchOutcome struct {
	Kind       OutcomeKind
	HTML       string
	StatusCode int
	Message    string
}

// HTMLOutcome builds a successful outcome carrying page content.
func HTMLOutcome(html string, status int) FetchOutcome {
	return FetchOutcome{Kind: OutcomeHTML, HTML: html, StatusCode: status}
}

// BlockedOutcome builds an outcome for a transient-class failure that
// exhausted its retries.
func BlockedOutcome(message string, status int) FetchOutcome {
	return FetchOutcome{Kind: OutcomeBlocked, StatusCode: status, Message: message}
}

// NotFoundOutcome builds an outcome for a terminal 404.
func NotFoundOutcome() FetchOutcome {
	return FetchOutcome{Kind: OutcomeNotFound, StatusCode: 404, Message: "not found"}
}

// FailureOutcome builds an outcome for any other terminal failure.
func FailureOutcome(message string) FetchOutcome {
	return FetchOutcome{Kind: OutcomeFailure, Message: message}
}

// FetchRequest captures everything needed to fetch a single URL.
type FetchRequest struct {
	URL      string
	Identity Identity
	Timeout  time.Duration
}

// CrawlRequest holds the per-crawl limits. It is immutable for the
// duration of one crawl.
type CrawlRequest struct {
	URL                  string
	MaxDepth             int
	MaxSubpages          int
	MaxLinksPerPage      int
	MaxStoredVisitedURLs int
	EarlyExitEmailCount  int
	SubpageConcurrency   int
	FetchTimeout         time.Duration
}

// PageError records a single page's fetch failure without aborting the
// crawl it belongs to.
type PageError struct {
	URL     string `json:"url"`
	Message string `json:"message"`
}

// CrawlOutcome aggregates everything found across the pages of one crawl.
// It is created once per CrawlRequest and immutable after the engine
// returns it.
type CrawlOutcome struct {
	Success        bool        `json:"success"`
	Emails         []string    `json:"emails"`
	FacebookURLs   []string    `json:"facebook_urls"`
	VisitedURLs    []string    `json:"visited_urls"`
	PagesCrawled   int         `json:"pages_crawled"`
	NeedsRendering bool        `json:"needs_rendering"`
	PageErrors     []PageError `json:"page_errors,omitempty"`
}

// Status is the pipeline classification of a finished crawl.
type Status string

// Status values consumed by the job-queue collaborator.
const (
	StatusCompleted     Status = "completed"
	StatusNeedsFallback Status = "needs_fallback"
	StatusError         Status = "error"
)

// Job is one ready-to-run unit handed over by the queue collaborator.
// The collaborator owns exactly-once claiming; the crawler does not retry
// at the job level.
type Job struct {
	ID  string
	URL string
	// FetchTimeout overrides the configured per-fetch timeout when > 0.
	FetchTimeout time.Duration
}

// JobResult is handed back to the queue collaborator when a job finishes.
type JobResult struct {
	Job     Job
	Status  Status
	Outcome CrawlOutcome
	Message string
}
