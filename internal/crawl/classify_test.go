package crawl

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/leadforge/contact-crawler/internal/crawler"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		outcome crawler.CrawlOutcome
		want    crawler.Status
	}{
		{
			name:    "emails found completes",
			outcome: crawler.CrawlOutcome{Success: true, Emails: []string{"info@acme.com"}},
			want:    crawler.StatusCompleted,
		},
		{
			name:    "emails win even when rendering was needed",
			outcome: crawler.CrawlOutcome{Success: true, Emails: []string{"info@acme.com"}, NeedsRendering: true},
			want:    crawler.StatusCompleted,
		},
		{
			name:    "blocked pages need the fallback",
			outcome: crawler.CrawlOutcome{Success: true, NeedsRendering: true},
			want:    crawler.StatusNeedsFallback,
		},
		{
			name:    "usable crawl without emails needs the fallback",
			outcome: crawler.CrawlOutcome{Success: true, PagesCrawled: 3},
			want:    crawler.StatusNeedsFallback,
		},
		{
			name:    "terminal primary failure errors",
			outcome: crawler.CrawlOutcome{Success: false},
			want:    crawler.StatusError,
		},
		{
			name:    "failed but blocked subpage still routes to fallback",
			outcome: crawler.CrawlOutcome{Success: false, NeedsRendering: true},
			want:    crawler.StatusNeedsFallback,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, Classify(tt.outcome))
		})
	}
}
