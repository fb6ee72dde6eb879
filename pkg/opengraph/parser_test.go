package opengraph

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, html string, base string) *Metadata {
	t.Helper()
	var u *url.URL
	if base != "" {
		var err error
		u, err = url.Parse(base)
		require.NoError(t, err)
	}
	meta, err := Parse(strings.NewReader(html), u)
	require.NoError(t, err)
	return meta
}

func TestParseOpenGraphTags(t *testing.T) {
	html := `<html><head>
		<title>Page title</title>
		<meta property="og:title" content="Reel by creator">
		<meta property="og:description" content="  a caption  ">
		<meta property="og:site_name" content="Instagram">
		<meta property="og:type" content="video.other">
		<meta property="og:url" content="https://www.instagram.com/reel/abc/">
		<meta property="og:image" content="https://cdn.example/thumb.jpg">
		<meta property="og:image:width" content="640">
		<meta property="og:image:height" content="1136">
		<meta property="og:image:alt" content="thumbnail">
	</head><body></body></html>`

	meta := mustParse(t, html, "")

	assert.Equal(t, "Reel by creator", meta.Title)
	assert.Equal(t, "a caption", meta.Description)
	assert.Equal(t, "Instagram", meta.SiteName)
	assert.Equal(t, "video.other", meta.Type)
	assert.Equal(t, "https://www.instagram.com/reel/abc/", meta.URL)
	require.Len(t, meta.Images, 1)
	assert.Equal(t, Image{URL: "https://cdn.example/thumb.jpg", Width: 640, Height: 1136, Alt: "thumbnail"}, meta.Images[0])
	assert.Equal(t, "https://cdn.example/thumb.jpg", meta.FirstImage())
}

func TestParseNameAttributeAndMultipleImages(t *testing.T) {
	html := `<head>
		<meta name="og:title" content="Named">
		<meta property="og:image" content="/first.jpg">
		<meta property="og:image:type" content="image/jpeg">
		<meta property="og:image" content="second.jpg">
		<meta property="og:image:secure_url" content="https://secure.example/second.jpg">
	</head>`

	meta := mustParse(t, html, "https://www.instagram.com/reel/abc/")

	assert.Equal(t, "Named", meta.Title)
	require.Len(t, meta.Images, 2)
	assert.Equal(t, "https://www.instagram.com/first.jpg", meta.Images[0].URL)
	assert.Equal(t, "image/jpeg", meta.Images[0].Type)
	assert.Equal(t, "https://www.instagram.com/reel/abc/second.jpg", meta.Images[1].URL)
	assert.Equal(t, "https://secure.example/second.jpg", meta.Images[1].SecureURL)
}

func TestParseImageURLAlias(t *testing.T) {
	html := `<head>
		<meta property="og:image:width" content="10">
		<meta property="og:image:url" content="https://cdn.example/a.jpg">
		<meta property="og:image:url" content="https://cdn.example/b.jpg">
	</head>`

	meta := mustParse(t, html, "")

	require.Len(t, meta.Images, 2)
	assert.Equal(t, "https://cdn.example/a.jpg", meta.Images[0].URL)
	assert.Equal(t, 10, meta.Images[0].Width)
	assert.Equal(t, "https://cdn.example/b.jpg", meta.Images[1].URL)
}

func TestParseFallbacks(t *testing.T) {
	html := `<html><head>
		<title> Fallback title </title>
		<meta name="description" content="Fallback description">
		<meta name="twitter:image" content="https://cdn.example/tw.jpg">
	</head></html>`

	meta := mustParse(t, html, "")

	assert.Equal(t, "Fallback title", meta.Title)
	assert.Equal(t, "Fallback description", meta.Description)
	assert.Equal(t, "https://cdn.example/tw.jpg", meta.FirstImage())
}

func TestParseOpenGraphBeatsFallbacks(t *testing.T) {
	html := `<head>
		<title>Ignored</title>
		<meta name="description" content="Ignored">
		<meta name="twitter:image" content="https://cdn.example/tw.jpg">
		<meta property="og:title" content="OG">
		<meta property="og:description" content="OG description">
		<meta property="og:image" content="https://cdn.example/og.jpg">
	</head>`

	meta := mustParse(t, html, "")

	assert.Equal(t, "OG", meta.Title)
	assert.Equal(t, "OG description", meta.Description)
	assert.Equal(t, "https://cdn.example/og.jpg", meta.FirstImage())
}

func TestFirstImageUsesOnlyTheFirstEntry(t *testing.T) {
	html := `<head>
		<meta property="og:image:secure_url" content="https://secure.example/first.jpg">
		<meta property="og:image" content="https://cdn.example/second.jpg">
	</head>`

	meta := mustParse(t, html, "")

	require.Len(t, meta.Images, 2)
	assert.Equal(t, "https://secure.example/first.jpg", meta.Images[0].SecureURL)
	assert.Equal(t, "", meta.FirstImage())
}

func TestParseEmptyPage(t *testing.T) {
	meta := mustParse(t, `<html><body><p>nothing here</p></body></html>`, "")

	assert.True(t, meta.Empty())
	assert.Equal(t, "", meta.FirstImage())
}

func TestParseIgnoresEmptyContent(t *testing.T) {
	meta := mustParse(t, `<head><meta property="og:title" content=""><meta property="og:title" content="Second"></head>`, "")
	assert.Equal(t, "Second", meta.Title)
}

func TestNilMetadataHelpers(t *testing.T) {
	var m *Metadata
	assert.True(t, m.Empty())
	assert.Equal(t, "", m.FirstImage())
}
