package extract

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEmailFilterRejectsJunk(t *testing.T) {
	t.Parallel()

	filter := NewEmailFilter(DefaultFilterConfig())

	junk := []string{
		"",
		"@acme.com",
		"info@@acme.com",
		"info@acme.com?subject=hi",
		"sprite@cdn.example.org.png",
		"sprite2x@acme-assets.io",
		"icon-small@2x.png",
		"noreply@acme.com",
		"do-not-reply@acme.com",
		"firstname@acme.com",
		"user@example.com",
		"hello@sub.wordpress.com",
		"abc123@o4509.ingest.sentry.io",
		"team@sentry.wixpress.com",
		"a@acme.com",
		"info@a.b",
		"info%40acme@acme.com",
		"contact@facebook.com",
	}
	for _, email := range junk {
		require.True(t, filter.IsJunk(email), "expected junk: %q", email)
	}
}

func TestEmailFilterKeepsRealContacts(t *testing.T) {
	t.Parallel()

	filter := NewEmailFilter(DefaultFilterConfig())

	real := []string{
		"jane@realcompany.io",
		"info@acme-bakery.com",
		"sales@store.example.org",
		"Office@Firm.LAW",
	}
	for _, email := range real {
		require.False(t, filter.IsJunk(email), "expected real: %q", email)
	}
}

func TestEmailFilterFilterPreservesOrder(t *testing.T) {
	t.Parallel()

	filter := NewEmailFilter(DefaultFilterConfig())
	got := filter.Filter([]string{
		"jane@realcompany.io",
		"noreply@acme.com",
		"info@acme-bakery.com",
	})
	require.Equal(t, []string{"jane@realcompany.io", "info@acme-bakery.com"}, got)
}

func TestEmailFilterConfigExtensions(t *testing.T) {
	t.Parallel()

	cfg := DefaultFilterConfig()
	cfg.BlockedDomains = append(cfg.BlockedDomains, "competitor.com")
	cfg.BlockedLocalParts = append(cfg.BlockedLocalParts, "spamtrap")
	filter := NewEmailFilter(cfg)

	require.True(t, filter.IsJunk("info@competitor.com"))
	require.True(t, filter.IsJunk("info@mail.competitor.com"))
	require.True(t, filter.IsJunk("spamtrap@acme.com"))
	require.False(t, filter.IsJunk("info@acme.com"))
}
