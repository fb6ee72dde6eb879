// Package ratelimit provides the limiters used in front of upstream Instagram
// requests and, optionally, in front of the proxy's own HTTP endpoint.
//
// TokenBucket refills to capacity once per period and suits bursty inbound
// traffic. SlidingWindow tracks individual request times and gives a steadier
// upstream request rate.
//
//	limiter := ratelimit.PerMinute(cfg.RateLimit.RequestsPerMinute)
//	if err := limiter.WaitContext(ctx); err != nil {
//		return err
//	}
package ratelimit
