// Package logger provides the structured logging interface used across reelproxy.
//
// It wraps zerolog behind the Logger interface so components receive a logger
// at construction time and tests can substitute TestLogger or the no-op logger.
//
//	log, err := logger.New(&config.LoggingConfig{Level: "info", Console: true})
//	log.WithField("shortcode", "Cabc123").Info("Resolving reel")
//
// Request-scoped loggers pick up the request id placed on the context by the
// HTTP server:
//
//	ctx = logger.ContextWithRequestID(ctx, id)
//	log.WithContext(ctx).Warn("Metadata lookup failed")
package logger
