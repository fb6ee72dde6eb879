// Package instagram resolves Instagram post, reel and share URLs into direct
// media URLs through the web client's persisted GraphQL query.
//
//	client := instagram.NewClient(cfg.Instagram, ratelimit.PerMinute(60), retryCfg, log)
//	links, err := client.ResolveMedia(ctx, "https://www.instagram.com/reel/C1a2B3c4D5e/")
//	if errs.Is(err, errs.ErrorTypeNotFound) {
//		// unknown or private post
//	}
//
// Failures are returned as *errors.Error values from reelproxy/pkg/errors so
// callers can tell authentication, rate limit, not-found and upstream errors
// apart. Only retryable failures are retried, and never beyond the caller's
// context deadline.
package instagram
