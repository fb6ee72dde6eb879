// Package retry provides backoff and retry logic for transient upstream
// failures.
//
// Retries are bounded by the caller's context: a per-call deadline set by the
// resolution proxy also caps the total time spent retrying.
//
//	links, err := retry.DoWithResult(ctx, func(ctx context.Context) (*MediaLinks, error) {
//		return c.queryShortcode(ctx, shortcode)
//	}, c.retryConfig)
//
// Failures typed by pkg/errors drive both the retry decision and, through
// ErrorTypeBackoff, the delay: rate limit errors back off more slowly than
// network or server errors. Auth, not-found and parsing errors are returned
// immediately.
package retry
