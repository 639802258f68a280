package extract

import (
	"regexp"
	"strings"
)

// FilterConfig lists the rejection rules for extracted emails. All lists
// are extendable via configuration; the defaults mirror the junk commonly
// found on site-builder and tracking-heavy pages.
type FilterConfig struct {
	// BlockedDomains rejects emails whose domain equals or is a subdomain
	// of an entry (platform hosts, CDNs, social networks, placeholders).
	BlockedDomains []string
	// BlockedLocalParts rejects placeholder local parts by exact match
	// after lowercasing.
	BlockedLocalParts []string
	// AssetPrefixes rejects local parts that start like asset filenames.
	AssetPrefixes []string
	// BlockedSubstrings rejects emails containing tracking-service markers.
	BlockedSubstrings []string
}

// DefaultFilterConfig returns the stock rule set.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		BlockedDomains: []string{
			"sentry.io", "sentry.wixpress.com", "sentry-next.wixpress.com",
			"ingest.sentry.io", "newrelic.com", "rollbar.com", "datadoghq.com",
			"bugsnag.com",
			"wordpress.com", "wordpress.org", "wpengine.com", "wix.com",
			"squarespace.com", "shopify.com", "shopifyemail.com",
			"bigcommerce.com", "weebly.com", "webflow.io", "ghost.org",
			"godaddy.com",
			"cloudflare.com", "cloudfront.net", "amazonaws.com", "azure.com",
			"digitalocean.com", "linode.com", "heroku.com", "netlify.app",
			"vercel.app", "render.com", "cloudwaysapps.com",
			"facebook.com", "instagram.com", "linkedin.com", "twitter.com",
			"x.com", "youtube.com", "tiktok.com", "pinterest.com",
			"fonts.googleapis.com", "use.typekit.net", "latofonts.com",
			"fontsquirrel.com", "myfonts.com",
			"example.com", "domain.com", "email.com", "mysite.com",
			"sample.com", "test.com", "yoursite.com", "companyname.com",
			"business.com", "website.com", "businessname.com", "company.com",
			"info.com", "domain.co", "domain.net",
		},
		BlockedLocalParts: []string{
			"noreply", "no-reply", "donotreply", "do-not-reply",
			"firstname", "lastname", "yourname", "fullname", "username",
			"user.name", "johnsmith", "john.doe", "alex.smith",
			"user", "filler", "placeholder", "your", "name", "email",
		},
		AssetPrefixes: []string{"sprite", "icon", "logo", "banner", "image", "font"},
		BlockedSubstrings: []string{
			"sentry", "wixpress.com", "shoplocal", "news.cfm",
		},
	}
}

var (
	fileSuffixPattern   = regexp.MustCompile(`(?i)\.(css|js|json|xml|map|min\.js|min\.css|woff|woff2|ttf|eot|pdf|png|jpg|jpeg|gif|svg|webp|ico)$`)
	retinaSuffixPattern = regexp.MustCompile(`(?i)@\d+x\.(png|jpg|jpeg|gif|svg|webp)`)
	escapeSeqPattern    = regexp.MustCompile(`%[0-9A-Fa-f]{2}`)
	ingestHostPattern   = regexp.MustCompile(`(?i)@o\d+\.ingest\.`)
)

// EmailFilter rejects emails that are tracking artifacts, placeholders, or
// asset references rather than real contacts.
type EmailFilter struct {
	domains       *domainBlocklist
	locals        map[string]struct{}
	assetPrefixes []string
	substrings    []string
}

// NewEmailFilter compiles the config into a filter.
func NewEmailFilter(cfg FilterConfig) *EmailFilter {
	locals := make(map[string]struct{}, len(cfg.BlockedLocalParts))
	for _, lp := range cfg.BlockedLocalParts {
		locals[strings.ToLower(strings.TrimSpace(lp))] = struct{}{}
	}
	prefixes := make([]string, 0, len(cfg.AssetPrefixes))
	for _, p := range cfg.AssetPrefixes {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			prefixes = append(prefixes, p)
		}
	}
	subs := make([]string, 0, len(cfg.BlockedSubstrings))
	for _, s := range cfg.BlockedSubstrings {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			subs = append(subs, s)
		}
	}
	return &EmailFilter{
		domains:       newDomainBlocklist(cfg.BlockedDomains),
		locals:        locals,
		assetPrefixes: prefixes,
		substrings:    subs,
	}
}

// IsJunk reports whether the email should be discarded.
func (f *EmailFilter) IsJunk(email string) bool {
	e := strings.ToLower(strings.TrimSpace(email))
	if e == "" {
		return true
	}

	switch {
	case strings.ContainsAny(e[:1], "%?& \t"):
		return true
	case strings.HasPrefix(e, "@"):
		return true
	case strings.Count(e, "@") != 1:
		return true
	case strings.ContainsAny(e, "?&"):
		return true
	case strings.Contains(e, "subject=") || strings.Contains(e, "body="):
		return true
	case fileSuffixPattern.MatchString(e):
		return true
	case retinaSuffixPattern.MatchString(e):
		return true
	case escapeSeqPattern.MatchString(e):
		return true
	case ingestHostPattern.MatchString(e):
		return true
	}

	for _, s := range f.substrings {
		if strings.Contains(e, s) {
			return true
		}
	}

	at := strings.LastIndex(e, "@")
	local, domain := e[:at], e[at+1:]

	if _, blocked := f.locals[local]; blocked {
		return true
	}
	for _, p := range f.assetPrefixes {
		if strings.HasPrefix(local, p) {
			return true
		}
	}
	if f.domains.isBlocked(domain) {
		return true
	}
	if len(local) < 2 || len(domain) < 4 || !strings.Contains(domain, ".") {
		return true
	}
	return false
}

// Filter drops junk emails, preserving order.
func (f *EmailFilter) Filter(emails []string) []string {
	kept := make([]string, 0, len(emails))
	for _, e := range emails {
		if !f.IsJunk(e) {
			kept = append(kept, e)
		}
	}
	return kept
}

// domainBlocklist stores exact hosts; a host is blocked when it equals an
// entry or is a subdomain of one.
type domainBlocklist struct {
	exact map[string]struct{}
}

func newDomainBlocklist(domains []string) *domainBlocklist {
	b := &domainBlocklist{exact: make(map[string]struct{}, len(domains))}
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			b.exact[d] = struct{}{}
		}
	}
	return b
}

func (b *domainBlocklist) isBlocked(host string) bool {
	host = strings.ToLower(strings.TrimSpace(host))
	if host == "" {
		return false
	}
	if _, ok := b.exact[host]; ok {
		return true
	}
	for blocked := range b.exact {
		if strings.HasSuffix(host, "."+blocked) {
			return true
		}
	}
	return false
}
