package crawl

import "github.com/leadforge/contact-crawler/internal/crawler"

// Classify maps a crawl outcome onto a terminal pipeline status. The same
// policy applies regardless of which fetch strategy produced the outcome:
// any harvested email completes the job, a usable-but-empty crawl is
// handed to the heavier fallback, and only a terminal failure of the seed
// page errors out.
func Classify(outcome crawler.CrawlOutcome) crawler.Status {
	switch {
	case len(outcome.Emails) > 0:
		return crawler.StatusCompleted
	case outcome.NeedsRendering:
		return crawler.StatusNeedsFallback
	case outcome.Success:
		return crawler.StatusNeedsFallback
	default:
		return crawler.StatusError
	}
}
