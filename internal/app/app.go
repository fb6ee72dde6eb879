// Package app assembles the proxy's components from configuration.
package app

import (
	"errors"
	"fmt"
	"sync"

	"reelproxy/internal/server"
	"reelproxy/pkg/auth"
	"reelproxy/pkg/config"
	"reelproxy/pkg/instagram"
	"reelproxy/pkg/logger"
	"reelproxy/pkg/opengraph"
	"reelproxy/pkg/ratelimit"
	"reelproxy/pkg/reel"
	"reelproxy/pkg/retry"
)

// App owns every long-lived component. Nothing is shared through package
// state; callers reach components through the fields.
type App struct {
	Config      *config.Config
	Logger      logger.Logger
	Credentials *auth.Manager
	Instagram   *instagram.Client
	Metadata    *opengraph.Fetcher
	Resolver    *reel.Service

	configAccount *auth.Account
	unsubscribe   func()
	closeOnce     sync.Once
}

type options struct {
	logger      logger.Logger
	credentials *auth.Manager
	noPersist   bool
}

// Option customizes New
type Option func(*options)

// WithLogger replaces the logger built from cfg.Logging
func WithLogger(log logger.Logger) Option {
	return func(o *options) { o.logger = log }
}

// WithCredentials uses an existing credential manager
func WithCredentials(m *auth.Manager) Option {
	return func(o *options) { o.credentials = m }
}

// WithoutPersistence keeps sign-ins in memory for the life of the process.
// The environment session is still honoured.
func WithoutPersistence() Option {
	return func(o *options) { o.noPersist = true }
}

// New builds the application. The Instagram client follows the credential
// manager's active session until Close.
func New(cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	log := o.logger
	if log == nil {
		var err error
		log, err = logger.New(&cfg.Logging)
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
	}

	credentials := o.credentials
	switch {
	case credentials != nil:
	case o.noPersist:
		credentials = auth.NewManagerWithStores(cfg.Instagram.Account, auth.NewMemoryStore(), auth.NewEnvironmentStore())
	default:
		var err error
		credentials, err = auth.NewManager(cfg.Instagram.Account)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize credential manager: %w", err)
		}
	}

	retryCfg := retry.FromSettings(cfg.Retry, log)
	client := instagram.NewClient(cfg.Instagram, ratelimit.PerMinute(cfg.RateLimit.RequestsPerMinute), retryCfg, log)
	fetcher := opengraph.NewFetcher(cfg.Metadata, retryCfg, log)

	a := &App{
		Config:      cfg,
		Logger:      log,
		Credentials: credentials,
		Instagram:   client,
		Metadata:    fetcher,
		Resolver:    reel.NewService(fetcher, client, cfg.Resolver, log),
	}
	if cfg.Instagram.SessionID != "" {
		a.configAccount = &auth.Account{
			Username:  "config",
			SessionID: cfg.Instagram.SessionID,
			CSRFToken: cfg.Instagram.CSRFToken,
			UserAgent: cfg.Instagram.UserAgent,
		}
	}

	a.unsubscribe = credentials.Subscribe(a.applyAccount)

	active, err := credentials.Active()
	switch {
	case err == nil:
		a.applyAccount(active)
	case errors.Is(err, auth.ErrCredentialsNotFound):
		a.applyAccount(nil)
	default:
		log.WithError(err).Warn("could not read stored credentials")
	}

	return a, nil
}

// applyAccount installs account on the Instagram client. Without a stored
// session the client falls back to the configured cookies, if any.
func (a *App) applyAccount(account *auth.Account) {
	if account == nil {
		account = a.configAccount
	}
	a.Instagram.ApplyAccount(account)

	if account == nil {
		a.Logger.Info("no instagram session, requests are anonymous")
		return
	}
	a.Logger.WithField("account", account.Username).Info("using instagram session")
}

// Server builds the HTTP server over the resolver
func (a *App) Server() *server.Server {
	return server.New(a.Config.Server, a.Resolver, a.Logger)
}

// Reload re-reads the credential stores and re-applies the active session
func (a *App) Reload() error {
	_, err := a.Credentials.Reload()
	return err
}

// Close detaches the client from credential changes. It is safe to call
// more than once.
func (a *App) Close() {
	a.closeOnce.Do(func() {
		if a.unsubscribe != nil {
			a.unsubscribe()
		}
	})
}
