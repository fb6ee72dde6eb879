// Package reel implements the media resolution proxy: it queries the media
// resolver and the metadata extractor concurrently and reconciles their
// outcomes into a single Result.
package reel

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"reelproxy/pkg/config"
	"reelproxy/pkg/instagram"
	"reelproxy/pkg/logger"
	"reelproxy/pkg/opengraph"
)

// Service resolves source URLs. It holds no per-request state and is safe
// for concurrent use.
type Service struct {
	metadata        MetadataFetcher
	media           MediaResolver
	metadataTimeout time.Duration
	mediaTimeout    time.Duration
	logger          logger.Logger
}

// NewService creates a Service. Zero timeouts leave the corresponding
// lookup bounded only by the caller's context.
func NewService(metadata MetadataFetcher, media MediaResolver, cfg config.ResolverConfig, log logger.Logger) *Service {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Service{
		metadata:        metadata,
		media:           media,
		metadataTimeout: cfg.MetadataTimeout,
		mediaTimeout:    cfg.MediaTimeout,
		logger:          log.WithField("component", "reel"),
	}
}

type metadataOutcome struct {
	meta *opengraph.Metadata
	err  error
}

type mediaOutcome struct {
	links    *instagram.MediaLinks
	err      error
	panicked bool
}

// Resolve looks up sourceURL with both collaborators and reconciles the
// results. A metadata failure only degrades the caption and thumbnail; a
// media failure fails the whole operation.
func (s *Service) Resolve(ctx context.Context, sourceURL string) (*Result, error) {
	sourceURL = strings.TrimSpace(sourceURL)
	if sourceURL == "" {
		return nil, &Error{Kind: KindMissingInput}
	}

	log := s.logger.WithContext(ctx).WithField("url", sourceURL)
	log.Info("resolving media")

	var (
		g        errgroup.Group
		metaOut  metadataOutcome
		mediaOut mediaOutcome
	)

	// Both goroutines always return nil so neither outcome hides the other.
	g.Go(func() error {
		defer func() {
			if r := recover(); r != nil {
				metaOut.meta = nil
				metaOut.err = fmt.Errorf("metadata lookup panicked: %v", r)
				log.WarnWithFields("metadata lookup panicked", map[string]interface{}{
					"panic": fmt.Sprint(r),
					"stack": string(debug.Stack()),
				})
			}
		}()
		callCtx, cancel := withBound(ctx, s.metadataTimeout)
		defer cancel()
		metaOut.meta, metaOut.err = s.metadata.Fetch(callCtx, sourceURL)
		return nil
	})

	g.Go(func() error {
		defer func() {
			if r := recover(); r != nil {
				mediaOut.panicked = true
				mediaOut.err = fmt.Errorf("media lookup panicked: %v", r)
				log.ErrorWithFields("media lookup panicked", map[string]interface{}{
					"panic": fmt.Sprint(r),
					"stack": string(debug.Stack()),
				})
			}
		}()
		callCtx, cancel := withBound(ctx, s.mediaTimeout)
		defer cancel()
		mediaOut.links, mediaOut.err = s.media.ResolveMedia(callCtx, sourceURL)
		return nil
	})

	_ = g.Wait()

	if metaOut.err != nil {
		log.WithError(metaOut.err).Warn("metadata lookup failed, using defaults")
	}

	if mediaOut.panicked {
		return nil, &Error{Kind: KindUnknownFailure, Details: mediaOut.err.Error(), Err: mediaOut.err}
	}

	if mediaOut.err != nil {
		log.WithError(mediaOut.err).Error("media lookup failed")
		return nil, &Error{Kind: KindMediaResolutionFailed, Details: mediaOut.err.Error(), Err: mediaOut.err}
	}

	if mediaOut.links == nil || len(mediaOut.links.URLList) == 0 || mediaOut.links.URLList[0] == "" {
		log.Warn("media lookup returned no urls")
		return nil, &Error{Kind: KindMediaNotFound}
	}

	result := &Result{
		MediaURL: mediaOut.links.URLList[0],
		Caption:  DefaultCaption,
	}

	if metaOut.err != nil {
		return result, nil
	}

	if meta := metaOut.meta; meta != nil {
		switch {
		case meta.Description != "":
			result.Caption = meta.Description
		case meta.Title != "":
			result.Caption = meta.Title
		}
		result.ThumbnailURL = meta.FirstImage()
	}

	return result, nil
}

func withBound(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
