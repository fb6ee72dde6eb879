package instagram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"reelproxy/internal/httputil"
	"reelproxy/pkg/auth"
	"reelproxy/pkg/config"
	errs "reelproxy/pkg/errors"
	"reelproxy/pkg/logger"
	"reelproxy/pkg/ratelimit"
	"reelproxy/pkg/retry"
)

// maxJSONBody caps GraphQL responses read into memory
const maxJSONBody = 8 << 20

// Client talks to Instagram's public web endpoints. It is safe for
// concurrent use; credentials may be swapped with ApplyAccount while
// requests are in flight.
type Client struct {
	httpClient *http.Client
	baseURL    string
	appID      string
	docID      string
	limiter    ratelimit.Limiter
	retry      *retry.Config
	logger     logger.Logger

	mu      sync.RWMutex
	headers map[string]string
	cookies map[string]string
}

// NewClient creates a new Instagram client from configuration.
// A nil limiter leaves upstream requests unlimited.
func NewClient(cfg config.InstagramConfig, limiter ratelimit.Limiter, retryCfg *retry.Config, log logger.Logger) *Client {
	if log == nil {
		log = logger.NewNopLogger()
	}
	if limiter == nil {
		limiter = ratelimit.Unlimited{}
	}
	if retryCfg == nil {
		retryCfg = &retry.Config{MaxAttempts: 1, Logger: log}
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = config.DefaultConfig().Instagram.UserAgent
	}
	appID := cfg.AppID
	if appID == "" {
		appID = DefaultAppID
	}
	docID := cfg.DocID
	if docID == "" {
		docID = DefaultDocID
	}

	c := &Client{
		httpClient: httputil.NewClient(cfg.Timeout),
		baseURL: BaseURL,
		appID:   appID,
		docID:   docID,
		limiter: limiter,
		retry:   retryCfg,
		logger:  log.WithField("component", "instagram"),
		headers: map[string]string{
			"User-Agent":      userAgent,
			"Accept":          "*/*",
			"Accept-Language": "en-US,en;q=0.9",
			"Cache-Control":   "no-cache",
			"Pragma":          "no-cache",
			"Sec-Fetch-Dest":  "empty",
			"Sec-Fetch-Mode":  "cors",
			"Sec-Fetch-Site":  "same-origin",
		},
		cookies: make(map[string]string),
	}

	if cfg.SessionID != "" {
		c.ApplyAccount(&auth.Account{SessionID: cfg.SessionID, CSRFToken: cfg.CSRFToken})
	}

	return c
}

// SetBaseURL points the client at a different Instagram origin
func (c *Client) SetBaseURL(baseURL string) {
	c.baseURL = strings.TrimRight(baseURL, "/")
}

// ApplyAccount installs the session cookies of account on subsequent
// requests. A nil account signs the client out.
func (c *Client) ApplyAccount(account *auth.Account) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cookies = make(map[string]string)
	delete(c.headers, "X-CSRFToken")

	if account == nil || account.SessionID == "" {
		c.logger.Debug("cleared instagram session")
		return
	}

	c.cookies["sessionid"] = account.SessionID
	if account.CSRFToken != "" {
		c.cookies["csrftoken"] = account.CSRFToken
		c.headers["X-CSRFToken"] = account.CSRFToken
	}
	if account.UserAgent != "" {
		c.headers["User-Agent"] = account.UserAgent
	}

	c.logger.DebugWithFields("applied instagram session", map[string]interface{}{
		"username": account.Username,
	})
}

// Authenticated reports whether a session cookie is installed
func (c *Client) Authenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cookies["sessionid"] != ""
}

func (c *Client) applyHeaders(req *http.Request) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
	for name, value := range c.cookies {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}
}

// doRequest performs an HTTP request with the configured headers
func (c *Client) doRequest(req *http.Request) (*http.Response, error) {
	c.applyHeaders(req)

	start := time.Now()
	c.logger.DebugWithFields("sending HTTP request", map[string]interface{}{
		"method": req.Method,
		"url":    req.URL.String(),
	})

	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.logger.WarnWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      req.URL.String(),
			"error":    err.Error(),
			"duration": duration,
		})
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, errs.Wrap(errs.ErrorTypeTimeout, ctxErr, "request aborted")
		}
		return nil, errs.Wrap(errs.ErrorTypeNetwork, err, "network error")
	}

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"method":   req.Method,
		"url":      req.URL.String(),
		"status":   resp.StatusCode,
		"duration": duration,
	})

	return resp, nil
}

// decodeJSON checks the status of resp and decodes its body into target
func (c *Client) decodeJSON(resp *http.Response, target interface{}) error {
	defer resp.Body.Close()

	if err := c.checkResponseStatus(resp); err != nil {
		return err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxJSONBody))
	if err != nil {
		return errs.Wrap(errs.ErrorTypeNetwork, err, "failed to read response body")
	}

	if err := json.Unmarshal(body, target); err != nil {
		bodyPreview := string(body)
		if len(bodyPreview) > 200 {
			bodyPreview = bodyPreview[:200] + "..."
		}

		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"url":          resp.Request.URL.String(),
			"status":       resp.StatusCode,
			"error":        err.Error(),
			"body_preview": bodyPreview,
		})
		return &errs.Error{
			Type:    errs.ErrorTypeParsing,
			Message: fmt.Sprintf("failed to parse JSON: %v", err),
			Code:    resp.StatusCode,
		}
	}

	return nil
}

// checkResponseStatus checks the HTTP response status and returns appropriate errors
func (c *Client) checkResponseStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	fields := map[string]interface{}{
		"status": resp.StatusCode,
		"url":    resp.Request.URL.String(),
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		c.logger.WarnWithFields("authentication error", fields)
		return errs.New(errs.ErrorTypeAuth, resp.StatusCode, "authentication required")
	case http.StatusNotFound:
		c.logger.WarnWithFields("resource not found", fields)
		return errs.New(errs.ErrorTypeNotFound, resp.StatusCode, "resource not found")
	case http.StatusTooManyRequests:
		c.logger.WarnWithFields("rate limit exceeded", fields)
		return errs.New(errs.ErrorTypeRateLimit, resp.StatusCode, "rate limit exceeded")
	default:
		if resp.StatusCode >= 500 {
			c.logger.ErrorWithFields("server error", fields)
			return errs.New(errs.ErrorTypeServerError, resp.StatusCode, "server error")
		}
		c.logger.ErrorWithFields("unexpected API error", fields)
		return errs.New(errs.ErrorTypeUnknown, resp.StatusCode, fmt.Sprintf("unexpected status code: %d", resp.StatusCode))
	}
}

// Download opens a stream to a media file on Instagram's CDN. The caller
// must close the returned body. The size is -1 when unknown.
func (c *Client) Download(ctx context.Context, mediaURL string) (io.ReadCloser, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, 0, errs.Wrap(errs.ErrorTypeInvalidInput, err, "failed to create request")
	}

	resp, err := c.doRequest(req)
	if err != nil {
		return nil, 0, err
	}

	if err := c.checkResponseStatus(resp); err != nil {
		resp.Body.Close()
		return nil, 0, err
	}

	return resp.Body, resp.ContentLength, nil
}

// asTyped converts an arbitrary failure into a typed error, leaving typed
// errors untouched.
func asTyped(err error) error {
	var typed *errs.Error
	if errors.As(err, &typed) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return errs.Wrap(errs.ErrorTypeTimeout, err, "request aborted")
	}
	return errs.Wrap(errs.ErrorTypeUnknown, err, "unexpected failure")
}
