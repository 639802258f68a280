// Package identity rotates request fingerprints across fetches.
package identity

import (
	"fmt"
	"sync/atomic"

	"github.com/leadforge/contact-crawler/internal/crawler"
)

// Profile is one (user-agent, accept-language, referer) tuple.
type Profile struct {
	UserAgent      string
	AcceptLanguage string
	Referer        string
}

// DefaultProfiles is the stock rotation list used when none is configured.
var DefaultProfiles = []Profile{
	{
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 Chrome/120.0.0.0 Safari/537.36",
		AcceptLanguage: "en-US,en;q=0.9",
		Referer:        "https://www.google.com/",
	},
	{
		UserAgent:      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 Safari/605.1.15",
		AcceptLanguage: "en-US,en;q=0.8",
		Referer:        "https://www.bing.com/",
	},
	{
		UserAgent:      "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 Chrome/118.0.0.0 Safari/537.36",
		AcceptLanguage: "en-GB,en;q=0.9",
		Referer:        "https://duckduckgo.com/",
	},
}

// Rotator cycles deterministically through identity profiles and,
// independently, through a proxy list. Next is safe under concurrent use;
// ordering among callers is irrelevant as long as the distribution is fair.
type Rotator struct {
	profiles []Profile
	proxies  []string
	profileN atomic.Uint64
	proxyN   atomic.Uint64
}

// NewRotator builds a Rotator. The profile list must be non-empty; an
// empty proxy list means no proxy is ever assigned.
func NewRotator(profiles []Profile, proxies []string) (*Rotator, error) {
	if len(profiles) == 0 {
		return nil, fmt.Errorf("identity: at least one profile is required")
	}
	return &Rotator{
		profiles: profiles,
		proxies:  proxies,
	}, nil
}

// Next returns the next identity in round-robin order.
func (r *Rotator) Next() crawler.Identity {
	p := r.profiles[int(r.profileN.Add(1)-1)%len(r.profiles)]
	id := crawler.Identity{
		UserAgent:      p.UserAgent,
		AcceptLanguage: p.AcceptLanguage,
		Referer:        p.Referer,
	}
	if len(r.proxies) > 0 {
		id.Proxy = r.proxies[int(r.proxyN.Add(1)-1)%len(r.proxies)]
	}
	return id
}
