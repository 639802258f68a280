package extract

import (
	"net/url"
	"regexp"
	"strings"
)

// maxNormalizeDepth bounds redirect-parameter resolution so that crafted
// /l.php chains cannot loop the normalizer.
const maxNormalizeDepth = 3

var (
	fbDirectPattern  = regexp.MustCompile(`(?i)https?://(?:www\.|m\.)?(?:facebook\.com|fb\.com)[^\s"'<>\\]*`)
	fbEscapedPattern = regexp.MustCompile(`(?i)https?:\\/\\/(?:www\.|m\.)?(?:facebook\.com|fb\.com)(?:\\/|[^\s"'<>])*`)
	fbEncodedPattern = regexp.MustCompile(`(?i)https?%3A%2F%2F(?:www\.|m\.)?(?:facebook\.com|fb\.com)[^\s"'<>]*`)
	fbBarePattern    = regexp.MustCompile(`(?i)(?:^|[\s"'>(])((?:www\.|m\.)?(?:facebook\.com|fb\.com)/[^\s"'<>)]+)`)
)

// shortSegmentAllowlist lists first path segments that are legitimate
// despite being short or script-like.
var shortSegmentAllowlist = map[string]struct{}{
	"p":          {},
	"sharer.php": {},
	"share.php":  {},
}

var trackingParams = map[string]struct{}{
	"fbclid":   {},
	"mibextid": {},
	"ref":      {},
	"refid":    {},
}

// ExtractFacebookURLs scans raw text for facebook profile URLs in direct,
// backslash-escaped, and percent-encoded forms, plus bare facebook.com/
// references, and returns the canonicalized, deduplicated set.
func ExtractFacebookURLs(text string) []string {
	out := newStringSet()
	for _, pattern := range []*regexp.Regexp{fbDirectPattern, fbEscapedPattern, fbEncodedPattern} {
		for _, m := range pattern.FindAllString(text, -1) {
			if u, ok := NormalizeFacebookURL(m); ok {
				out.add(u)
			}
		}
	}
	for _, groups := range fbBarePattern.FindAllStringSubmatch(text, -1) {
		if u, ok := NormalizeFacebookURL("https://" + groups[1]); ok {
			out.add(u)
		}
	}
	return out.ordered()
}

// NormalizeFacebookURL canonicalizes a facebook URL candidate: unescapes,
// percent-decodes, coerces to https, resolves facebook's own redirect
// forwarding, strips tracking parameters and fragments, and rejects
// non-facebook hosts and junk path segments. The redirect resolution is an
// explicit loop bounded by maxNormalizeDepth.
func NormalizeFacebookURL(raw string) (string, bool) {
	for depth := 0; depth <= maxNormalizeDepth; depth++ {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return "", false
		}
		raw = strings.ReplaceAll(raw, `\/`, "/")

		if strings.Contains(raw, "%3A") || strings.Contains(raw, "%2F") ||
			strings.Contains(raw, "%3a") || strings.Contains(raw, "%2f") {
			if decoded, err := url.QueryUnescape(raw); err == nil {
				raw = decoded
			}
		}

		lower := strings.ToLower(raw)
		switch {
		case strings.HasPrefix(lower, "http://"):
			raw = "https://" + raw[len("http://"):]
		case strings.HasPrefix(lower, "https://"):
		case strings.HasPrefix(lower, "//"):
			raw = "https:" + raw
		default:
			raw = "https://" + raw
		}

		u, err := url.Parse(raw)
		if err != nil {
			return "", false
		}
		host := strings.ToLower(u.Hostname())
		host = strings.TrimPrefix(host, "www.")
		host = strings.TrimPrefix(host, "m.")
		if !isFacebookHost(host) {
			return "", false
		}

		// Facebook's redirect forwarder: recurse into the target once per
		// loop iteration, bounded by depth.
		if strings.HasPrefix(u.Path, "/l.php") {
			q := u.Query()
			target := q.Get("u")
			if target == "" {
				target = q.Get("href")
			}
			if target == "" {
				return "", false
			}
			raw = target
			continue
		}

		u.Host = host
		u.Fragment = ""
		u.RawQuery = stripTrackingParams(u.Query())

		path := strings.TrimSuffix(u.Path, "/")
		if path == "" {
			return "", false
		}
		first := strings.SplitN(strings.TrimPrefix(path, "/"), "/", 2)[0]
		if len(first) <= 1 {
			if _, ok := shortSegmentAllowlist[first]; !ok {
				return "", false
			}
		}
		u.Path = path
		u.Scheme = "https"
		return u.String(), true
	}
	return "", false
}

func isFacebookHost(host string) bool {
	for _, base := range []string{"facebook.com", "fb.com"} {
		if host == base || strings.HasSuffix(host, "."+base) {
			return true
		}
	}
	return false
}

func stripTrackingParams(q url.Values) string {
	for key := range q {
		lk := strings.ToLower(key)
		if _, drop := trackingParams[lk]; drop || strings.HasPrefix(lk, "utm_") {
			q.Del(key)
		}
	}
	return q.Encode()
}
