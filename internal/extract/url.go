// Package extract pulls contact signals (emails, social URLs, same-origin
// links) out of fetched HTML.
package extract

import (
	"net/url"
	"strings"
)

// CleanURL strips the fragment and normalizes an empty path to "/".
// It is idempotent: CleanURL(CleanURL(u)) == CleanURL(u).
func CleanURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		if i := strings.Index(raw, "#"); i >= 0 {
			return raw[:i]
		}
		return raw
	}
	u.Fragment = ""
	if u.Host != "" && u.Path == "" {
		u.Path = "/"
	}
	return u.String()
}

// sameOrigin reports whether two URLs share scheme-agnostic host equality.
// Port differences count as different origins.
func sameOrigin(a, b *url.URL) bool {
	if a == nil || b == nil {
		return false
	}
	return strings.EqualFold(a.Host, b.Host)
}
