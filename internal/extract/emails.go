package extract

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	// Obfuscated forms: name [at] domain [dot] com, name(at)domain(dot)com.
	obfuscatedEmailPattern = regexp.MustCompile(`(?i)[a-zA-Z0-9._%+-]+\s*[\[\(]\s*at\s*[\]\)]\s*[a-zA-Z0-9.-]+\s*[\[\(]\s*dot\s*[\]\)]\s*[a-zA-Z]{2,}`)
	obfuscatedAtPattern    = regexp.MustCompile(`(?i)\s*[\[\(]\s*at\s*[\]\)]\s*`)
	obfuscatedDotPattern   = regexp.MustCompile(`(?i)\s*[\[\(]\s*dot\s*[\]\)]\s*`)
)

// PageSignals holds the contact signals pulled from one page.
type PageSignals struct {
	Emails       []string
	FacebookURLs []string
	Links        []string
}

// Extractor parses fetched HTML into contact signals. Parse anomalies are
// treated as zero signal for the page, never as errors.
type Extractor struct {
	filter *EmailFilter
}

// NewExtractor builds an Extractor using the provided junk filter.
func NewExtractor(filter *EmailFilter) *Extractor {
	return &Extractor{filter: filter}
}

// Extract pulls emails, facebook URLs, and same-origin links from html.
// Emails are merged from every source, deduplicated, then junk-filtered.
// Page anchors are appended to links when it is non-nil, so callers may
// pre-seed it (e.g. with the common contact paths) before extraction.
func (e *Extractor) Extract(pageURL, html string, links *LinkCollector) PageSignals {
	emails := newStringSet()
	fbURLs := newStringSet()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		// Malformed beyond parsing: fall back to a raw text scan.
		collectEmailsFromText(emails, html)
		for _, u := range ExtractFacebookURLs(html) {
			fbURLs.add(u)
		}
		return PageSignals{
			Emails:       e.filter.Filter(emails.ordered()),
			FacebookURLs: fbURLs.ordered(),
		}
	}

	collectMailtoEmails(doc, emails)
	collectWrappedEmails(doc, emails)
	collectEmailsFromText(emails, doc.Text())
	collectJSONLDEmails(doc, emails)
	collectAttributeEmails(doc, emails)

	for _, u := range ExtractFacebookURLs(html) {
		fbURLs.add(u)
	}

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if fb, ok := NormalizeFacebookURL(href); ok {
			fbURLs.add(fb)
			return
		}
		if links != nil {
			links.Add(href)
		}
	})

	signals := PageSignals{
		Emails:       e.filter.Filter(emails.ordered()),
		FacebookURLs: fbURLs.ordered(),
	}
	if links != nil {
		signals.Links = links.Links()
	}
	return signals
}

func collectMailtoEmails(doc *goquery.Document, out *stringSet) {
	doc.Find(`a[href^="mailto:"]`).Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		addr := strings.TrimPrefix(href, "mailto:")
		if i := strings.IndexAny(addr, "?#"); i >= 0 {
			addr = addr[:i]
		}
		if addr = strings.TrimSpace(addr); addr != "" {
			out.add(addr)
		}
	})
}

// collectWrappedEmails picks up emails that are the entire visible text of
// a markup element, e.g. <span>info@acme.com</span>.
func collectWrappedEmails(doc *goquery.Document, out *stringSet) {
	doc.Find("a, span, p, li, td, div, strong, b, em").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text == "" || len(text) > 254 {
			return
		}
		if emailPattern.FindString(text) == text {
			out.add(text)
		}
	})
}

func collectEmailsFromText(out *stringSet, text string) {
	for _, m := range emailPattern.FindAllString(text, -1) {
		out.add(strings.TrimSpace(m))
	}
	for _, m := range obfuscatedEmailPattern.FindAllString(text, -1) {
		out.add(deobfuscateEmail(m))
	}
}

func deobfuscateEmail(s string) string {
	s = obfuscatedAtPattern.ReplaceAllString(s, "@")
	s = obfuscatedDotPattern.ReplaceAllString(s, ".")
	return strings.TrimSpace(s)
}

// collectJSONLDEmails scans schema.org structured data blocks.
func collectJSONLDEmails(doc *goquery.Document, out *stringSet) {
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		var data any
		if err := json.Unmarshal([]byte(s.Text()), &data); err != nil {
			return
		}
		walkJSONForEmails(data, out)
	})
}

func walkJSONForEmails(v any, out *stringSet) {
	switch val := v.(type) {
	case string:
		if strings.Contains(val, "@") && strings.Contains(val, ".") {
			for _, m := range emailPattern.FindAllString(val, -1) {
				out.add(m)
			}
		}
	case map[string]any:
		for _, child := range val {
			walkJSONForEmails(child, out)
		}
	case []any:
		for _, child := range val {
			walkJSONForEmails(child, out)
		}
	}
}

// collectAttributeEmails scans meta tags and data-* attributes that
// commonly carry contact addresses.
func collectAttributeEmails(doc *goquery.Document, out *stringSet) {
	doc.Find(`meta[property*="email"], meta[name*="email"]`).Each(func(_ int, s *goquery.Selection) {
		content, _ := s.Attr("content")
		for _, m := range emailPattern.FindAllString(content, -1) {
			out.add(m)
		}
	})
	attrs := []string{"data-email", "data-contact-email", "data-e-mail", "data-address"}
	doc.Find("[data-email], [data-contact-email], [data-e-mail], [data-address]").Each(func(_ int, s *goquery.Selection) {
		for _, attr := range attrs {
			if val, ok := s.Attr(attr); ok {
				for _, m := range emailPattern.FindAllString(val, -1) {
					out.add(m)
				}
			}
		}
	})
}

// stringSet is an insertion-ordered set.
type stringSet struct {
	seen  map[string]struct{}
	items []string
}

func newStringSet() *stringSet {
	return &stringSet{seen: make(map[string]struct{})}
}

func (s *stringSet) add(v string) {
	if v == "" {
		return
	}
	if _, ok := s.seen[v]; ok {
		return
	}
	s.seen[v] = struct{}{}
	s.items = append(s.items, v)
}

func (s *stringSet) ordered() []string {
	return s.items
}
