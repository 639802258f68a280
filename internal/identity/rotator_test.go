package identity

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRotatorRoundRobin(t *testing.T) {
	t.Parallel()

	profiles := []Profile{
		{UserAgent: "ua-1", AcceptLanguage: "en-US", Referer: "https://one.example/"},
		{UserAgent: "ua-2", AcceptLanguage: "en-GB", Referer: "https://two.example/"},
	}
	r, err := NewRotator(profiles, nil)
	require.NoError(t, err)

	first := r.Next()
	second := r.Next()
	third := r.Next()

	require.Equal(t, "ua-1", first.UserAgent)
	require.Equal(t, "ua-2", second.UserAgent)
	require.Equal(t, "ua-1", third.UserAgent, "cursor wraps around")
	require.Empty(t, first.Proxy)
}

func TestRotatorProxyCursorIndependent(t *testing.T) {
	t.Parallel()

	profiles := []Profile{{UserAgent: "ua-1"}, {UserAgent: "ua-2"}}
	proxies := []string{"http://p1:8080", "http://p2:8080", "http://p3:8080"}
	r, err := NewRotator(profiles, proxies)
	require.NoError(t, err)

	var seen []string
	for i := 0; i < 3; i++ {
		seen = append(seen, r.Next().Proxy)
	}
	require.Equal(t, proxies, seen, "proxy list cycles on its own cursor")
}

func TestNewRotatorRequiresProfiles(t *testing.T) {
	t.Parallel()

	_, err := NewRotator(nil, nil)
	require.Error(t, err)
}

func TestDefaultProfilesLookLikeBrowsers(t *testing.T) {
	t.Parallel()

	require.NotEmpty(t, DefaultProfiles)
	for _, p := range DefaultProfiles {
		require.Contains(t, p.UserAgent, "Mozilla/5.0")
		require.NotEmpty(t, p.AcceptLanguage)
		require.NotEmpty(t, p.Referer)
	}
}
