package opengraph

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"reelproxy/internal/httputil"
	"reelproxy/pkg/config"
	errs "reelproxy/pkg/errors"
	"reelproxy/pkg/logger"
	"reelproxy/pkg/retry"
)

// Fetcher downloads pages and extracts their Open Graph metadata
type Fetcher struct {
	httpClient   *http.Client
	userAgent    string
	maxBodyBytes int64
	retry        *retry.Config
	logger       logger.Logger
}

// NewFetcher creates a Fetcher. A nil retry config performs one attempt.
func NewFetcher(cfg config.MetadataConfig, retryCfg *retry.Config, log logger.Logger) *Fetcher {
	if log == nil {
		log = logger.NewNopLogger()
	}
	if retryCfg == nil {
		retryCfg = &retry.Config{MaxAttempts: 1, Logger: log}
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = config.DefaultConfig().Metadata.MaxBodyBytes
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = config.DefaultConfig().Metadata.UserAgent
	}

	return &Fetcher{
		httpClient:   httputil.NewClient(cfg.Timeout),
		userAgent:    userAgent,
		maxBodyBytes: maxBody,
		retry:        retryCfg,
		logger:       log.WithField("component", "opengraph"),
	}
}

// Fetch retrieves pageURL and parses its Open Graph tags. A page that
// declares no tags yields empty Metadata and no error.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (*Metadata, error) {
	if err := httputil.ValidateURL(pageURL); err != nil {
		return nil, errs.Wrap(errs.ErrorTypeInvalidInput, err, "invalid page url")
	}

	log := f.logger.WithContext(ctx).WithField("url", pageURL)

	meta, err := retry.DoWithResult(ctx, func(ctx context.Context) (*Metadata, error) {
		return f.fetchOnce(ctx, pageURL)
	}, f.retry)
	if err != nil {
		log.WithError(err).Debug("metadata fetch failed")
		return nil, err
	}

	log.DebugWithFields("metadata fetched", map[string]interface{}{
		"title":  meta.Title,
		"images": len(meta.Images),
	})
	return meta, nil
}

func (f *Fetcher) fetchOnce(ctx context.Context, pageURL string) (*Metadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeInvalidInput, err, "creating request")
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	start := time.Now()
	resp, err := f.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, errs.Wrap(errs.ErrorTypeTimeout, ctxErr, "request aborted")
		}
		return nil, errs.Wrap(errs.ErrorTypeNetwork, err, "request failed")
	}
	defer resp.Body.Close()

	f.logger.DebugWithFields("page fetched", map[string]interface{}{
		"url":      pageURL,
		"status":   resp.StatusCode,
		"duration": time.Since(start),
	})

	if err := statusError(resp.StatusCode); err != nil {
		return nil, err
	}

	meta, err := Parse(io.LimitReader(resp.Body, f.maxBodyBytes), resp.Request.URL)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeParsing, err, "parsing page")
	}
	return meta, nil
}

func statusError(status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return errs.New(errs.ErrorTypeAuth, status, "page requires authentication")
	case status == http.StatusNotFound || status == http.StatusGone:
		return errs.New(errs.ErrorTypeNotFound, status, "page not found")
	case status == http.StatusTooManyRequests:
		return errs.New(errs.ErrorTypeRateLimit, status, "rate limit exceeded")
	case status >= 500:
		return errs.New(errs.ErrorTypeServerError, status, "server error")
	default:
		return errs.New(errs.ErrorTypeUnknown, status, fmt.Sprintf("unexpected status code: %d", status))
	}
}
