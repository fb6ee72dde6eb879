package reel

import (
	"context"

	"reelproxy/pkg/instagram"
	"reelproxy/pkg/opengraph"
)

// DefaultCaption is used when the page declares neither a description nor a title
const DefaultCaption = "Instagram Reel"

// Result is the normalized outcome of a successful resolution. MediaURL is
// always non-empty.
type Result struct {
	MediaURL     string `json:"videoUrl"`
	ThumbnailURL string `json:"thumbnail"`
	Caption      string `json:"caption"`
}

// MetadataFetcher looks up page-level Open Graph metadata
type MetadataFetcher interface {
	Fetch(ctx context.Context, pageURL string) (*opengraph.Metadata, error)
}

// MediaResolver resolves a post URL into direct media URLs
type MediaResolver interface {
	ResolveMedia(ctx context.Context, postURL string) (*instagram.MediaLinks, error)
}

// MetadataFetcherFunc adapts a function to MetadataFetcher
type MetadataFetcherFunc func(ctx context.Context, pageURL string) (*opengraph.Metadata, error)

func (f MetadataFetcherFunc) Fetch(ctx context.Context, pageURL string) (*opengraph.Metadata, error) {
	return f(ctx, pageURL)
}

// MediaResolverFunc adapts a function to MediaResolver
type MediaResolverFunc func(ctx context.Context, postURL string) (*instagram.MediaLinks, error)

func (f MediaResolverFunc) ResolveMedia(ctx context.Context, postURL string) (*instagram.MediaLinks, error) {
	return f(ctx, postURL)
}
