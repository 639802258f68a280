package extract

import (
	"fmt"
	"net/url"
	"strings"
)

// CommonPagePaths are well-known contact/about paths seeded into every
// crawl even when the page does not link to them; many sites host an
// un-linked or footer-only contact page.
var CommonPagePaths = []string{"/contact", "/about", "/contact-us", "/about-us"}

// LinkCollector accumulates normalized, deduplicated same-origin links
// from a single page, capped at a maximum. Insertion order is preserved so
// seeded common pages keep priority under downstream truncation.
type LinkCollector struct {
	base     *url.URL
	basePage string
	max      int
	seen     map[string]struct{}
	links    []string
}

// NewLinkCollector builds a collector for the page at pageURL.
func NewLinkCollector(pageURL string, maxLinks int) (*LinkCollector, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("page url %q has no host", pageURL)
	}
	if maxLinks <= 0 {
		maxLinks = 1
	}
	return &LinkCollector{
		base:     base,
		basePage: CleanURL(pageURL),
		max:      maxLinks,
		seen:     make(map[string]struct{}),
	}, nil
}

// Add resolves raw against the page URL and records it when it is a new
// same-origin link distinct from the page itself. It reports whether the
// link was recorded.
func (c *LinkCollector) Add(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(raw, "#") {
		return false
	}
	lower := strings.ToLower(raw)
	if strings.HasPrefix(lower, "javascript:") || strings.HasPrefix(lower, "mailto:") || strings.HasPrefix(lower, "tel:") {
		return false
	}
	if len(c.links) >= c.max {
		return false
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return false
	}
	resolved := c.base.ResolveReference(ref)
	if !sameOrigin(resolved, c.base) {
		return false
	}
	cleaned := CleanURL(resolved.String())
	if cleaned == c.basePage {
		return false
	}
	if _, dup := c.seen[cleaned]; dup {
		return false
	}
	c.seen[cleaned] = struct{}{}
	c.links = append(c.links, cleaned)
	return true
}

// AddCommonPages seeds the well-known contact/about paths, each with and
// without a trailing slash.
func (c *LinkCollector) AddCommonPages() {
	for _, p := range CommonPagePaths {
		c.Add(fmt.Sprintf("%s://%s%s", c.base.Scheme, c.base.Host, p))
		c.Add(fmt.Sprintf("%s://%s%s/", c.base.Scheme, c.base.Host, p))
	}
}

// Links returns the collected links in insertion order.
func (c *LinkCollector) Links() []string {
	return c.links
}
