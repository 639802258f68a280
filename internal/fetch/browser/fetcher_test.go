package browser

import (
	"context"
	"errors"
	"testing"

	"github.com/chromedp/cdproto/network"
	"github.com/stretchr/testify/require"
)

func TestShouldBlockDefaults(t *testing.T) {
	t.Parallel()

	f := New(Config{}, nil, nil)

	for _, rt := range []network.ResourceType{
		network.ResourceTypeImage,
		network.ResourceTypeMedia,
		network.ResourceTypeFont,
		network.ResourceTypeStylesheet,
	} {
		require.True(t, f.shouldBlock(rt), string(rt))
	}
	require.False(t, f.shouldBlock(network.ResourceTypeDocument))
	require.False(t, f.shouldBlock(network.ResourceTypeScript), "scripts must load for JS-rendered contact pages")
	require.False(t, f.shouldBlock(network.ResourceTypeXHR))
}

func TestShouldBlockConfigured(t *testing.T) {
	t.Parallel()

	f := New(Config{BlockedResourceTypes: []string{"image", "script"}}, nil, nil)

	require.True(t, f.shouldBlock(network.ResourceTypeImage))
	require.True(t, f.shouldBlock(network.ResourceTypeScript))
	require.False(t, f.shouldBlock(network.ResourceTypeStylesheet), "configured list replaces the defaults")
}

func TestIsNavTimeout(t *testing.T) {
	t.Parallel()

	require.True(t, isNavTimeout(context.DeadlineExceeded))
	require.True(t, isNavTimeout(errors.New("chromedp run: context deadline exceeded")))
	require.False(t, isNavTimeout(errors.New("net::ERR_NAME_NOT_RESOLVED")))
	require.False(t, isNavTimeout(context.Canceled))
}

func TestCapitalize(t *testing.T) {
	t.Parallel()

	require.Equal(t, "Image", capitalize("image"))
	require.Equal(t, "Stylesheet", capitalize("STYLESHEET"))
	require.Equal(t, "", capitalize(""))
}

func TestResponseMetaKeepsFirstDocumentResponse(t *testing.T) {
	t.Parallel()

	m := newResponseMeta()
	m.captureEvent(&network.EventResponseReceived{
		Type:     network.ResourceTypeDocument,
		Response: &network.Response{Status: 403, URL: "https://walled.example/"},
	})
	m.captureEvent(&network.EventResponseReceived{
		Type:     network.ResourceTypeDocument,
		Response: &network.Response{Status: 200, URL: "https://walled.example/retry"},
	})
	m.captureEvent(&network.EventResponseReceived{
		Type:     network.ResourceTypeXHR,
		Response: &network.Response{Status: 500},
	})

	status, url := m.snapshot()
	require.Equal(t, 403, status, "first document response wins")
	require.Equal(t, "https://walled.example/", url)
}
