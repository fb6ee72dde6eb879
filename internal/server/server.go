// Package server exposes reel resolution over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"reelproxy/pkg/config"
	"reelproxy/pkg/logger"
	"reelproxy/pkg/ratelimit"
	"reelproxy/pkg/reel"
)

// Resolver is the operation served at /api/reel
type Resolver interface {
	Resolve(ctx context.Context, sourceURL string) (*reel.Result, error)
}

// Server is the HTTP front of the proxy
type Server struct {
	cfg      config.ServerConfig
	resolver Resolver
	limiter  *ratelimit.TokenBucket
	logger   logger.Logger
	http     *http.Server
}

// New builds the router. A positive RequestsPerMinute enables the inbound
// limit on /api/reel.
func New(cfg config.ServerConfig, resolver Resolver, log logger.Logger) *Server {
	if log == nil {
		log = logger.NewNopLogger()
	}

	s := &Server{
		cfg:      cfg,
		resolver: resolver,
		logger:   log.WithField("component", "server"),
	}
	if cfg.RequestsPerMinute > 0 {
		s.limiter = ratelimit.NewTokenBucket(cfg.RequestsPerMinute, time.Minute)
	}

	s.http = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.Routes(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

// Routes returns the complete handler tree
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(requestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(cors)

	r.Get("/healthz", s.handleHealth)

	r.Options("/api/reel", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	if s.limiter != nil {
		r.With(s.rateLimit).Get("/api/reel", s.handleReel)
	} else {
		r.Get("/api/reel", s.handleReel)
	}

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "Method not allowed"})
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Not found"})
	})

	return r
}

// Start listens until Shutdown. It returns nil after a clean shutdown.
func (s *Server) Start() error {
	logger.LogComponentStart(s.logger, "server", map[string]interface{}{
		"address":              s.cfg.Address,
		"requests_per_minute":  s.cfg.RequestsPerMinute,
		"expose_error_details": s.cfg.ExposeErrorDetails,
	})

	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	defer logger.LogComponentStop(s.logger, "server", "shutdown")
	return s.http.Shutdown(ctx)
}

// Addr returns the configured listen address
func (s *Server) Addr() string {
	return s.cfg.Address
}
