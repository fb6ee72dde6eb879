package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reelproxy/pkg/config"
	"reelproxy/pkg/instagram"
	"reelproxy/pkg/logger"
	"reelproxy/pkg/opengraph"
	"reelproxy/pkg/reel"
)

type resolverFunc func(ctx context.Context, sourceURL string) (*reel.Result, error)

func (f resolverFunc) Resolve(ctx context.Context, sourceURL string) (*reel.Result, error) {
	return f(ctx, sourceURL)
}

func newTestServer(t *testing.T, cfg config.ServerConfig, resolver Resolver) (*httptest.Server, *logger.TestLogger) {
	t.Helper()
	log := logger.NewTestLogger()
	ts := httptest.NewServer(New(cfg, resolver, log).Routes())
	t.Cleanup(ts.Close)
	return ts, log
}

func testRequest(t *testing.T, ts *httptest.Server, method, path string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(method, ts.URL+path, nil)
	require.NoError(t, err)

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func reelPath(source string) string {
	return "/api/reel?url=" + url.QueryEscape(source)
}

// serviceWith wires a real reel.Service over stub collaborators
func serviceWith(meta *opengraph.Metadata, metaErr error, urls []string, mediaErr error) *reel.Service {
	return reel.NewService(
		reel.MetadataFetcherFunc(func(ctx context.Context, pageURL string) (*opengraph.Metadata, error) {
			return meta, metaErr
		}),
		reel.MediaResolverFunc(func(ctx context.Context, postURL string) (*instagram.MediaLinks, error) {
			if mediaErr != nil {
				return nil, mediaErr
			}
			return &instagram.MediaLinks{URLList: urls}, nil
		}),
		config.ResolverConfig{},
		nil,
	)
}

func defaultServerConfig() config.ServerConfig {
	return config.DefaultConfig().Server
}

func TestHandleReel(t *testing.T) {
	tests := []struct {
		name       string
		resolver   Resolver
		path       string
		wantStatus int
		wantBody   map[string]string
	}{
		{
			name:       "success",
			resolver:   serviceWith(&opengraph.Metadata{Description: "Sunset clip"}, nil, []string{"https://cdn/x.mp4", "https://cdn/y.mp4"}, nil),
			path:       reelPath("https://instagram.com/reel/ABC"),
			wantStatus: http.StatusOK,
			wantBody:   map[string]string{"videoUrl": "https://cdn/x.mp4", "thumbnail": "", "caption": "Sunset clip"},
		},
		{
			name:       "metadata failure degrades",
			resolver:   serviceWith(nil, errors.New("blocked"), []string{"https://cdn/x.mp4"}, nil),
			path:       reelPath("https://instagram.com/reel/ABC"),
			wantStatus: http.StatusOK,
			wantBody:   map[string]string{"videoUrl": "https://cdn/x.mp4", "thumbnail": "", "caption": "Instagram Reel"},
		},
		{
			name:       "missing url",
			resolver:   serviceWith(nil, nil, nil, nil),
			path:       "/api/reel",
			wantStatus: http.StatusBadRequest,
			wantBody:   map[string]string{"error": "Missing URL parameter"},
		},
		{
			name:       "empty url",
			resolver:   serviceWith(nil, nil, nil, nil),
			path:       "/api/reel?url=",
			wantStatus: http.StatusBadRequest,
			wantBody:   map[string]string{"error": "Missing URL parameter"},
		},
		{
			name:       "media failure",
			resolver:   serviceWith(nil, nil, nil, errors.New("network timeout")),
			path:       reelPath("https://instagram.com/reel/ABC"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   map[string]string{"error": "Failed to extract video URL", "details": "network timeout"},
		},
		{
			name:       "no media",
			resolver:   serviceWith(&opengraph.Metadata{Title: "t"}, nil, []string{}, nil),
			path:       reelPath("https://instagram.com/reel/ABC"),
			wantStatus: http.StatusNotFound,
			wantBody:   map[string]string{"error": "Could not find video URL"},
		},
		{
			name: "untyped error",
			resolver: resolverFunc(func(ctx context.Context, sourceURL string) (*reel.Result, error) {
				return nil, errors.New("unexpected")
			}),
			path:       reelPath("https://instagram.com/reel/ABC"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   map[string]string{"error": "Failed to process request", "details": "unexpected"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, _ := newTestServer(t, defaultServerConfig(), tt.resolver)

			resp, body := testRequest(t, ts, http.MethodGet, tt.path)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

			var got map[string]string
			require.NoError(t, json.Unmarshal([]byte(body), &got))
			assert.Equal(t, tt.wantBody, got)
		})
	}
}

func TestHandleReelPassesURL(t *testing.T) {
	var seen string
	ts, _ := newTestServer(t, defaultServerConfig(), resolverFunc(func(ctx context.Context, sourceURL string) (*reel.Result, error) {
		seen = sourceURL
		return &reel.Result{MediaURL: "https://cdn/x.mp4", Caption: reel.DefaultCaption}, nil
	}))

	source := "https://www.instagram.com/reel/ABC/?igsh=a&utm=b"
	resp, _ := testRequest(t, ts, http.MethodGet, reelPath(source))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, source, seen)
}

func TestErrorDetailsCanBeHidden(t *testing.T) {
	cfg := defaultServerConfig()
	cfg.ExposeErrorDetails = false
	ts, _ := newTestServer(t, cfg, serviceWith(nil, nil, nil, errors.New("upstream said 403 for session abc")))

	resp, body := testRequest(t, ts, http.MethodGet, reelPath("https://instagram.com/reel/ABC"))
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.JSONEq(t, `{"error":"Failed to extract video URL"}`, body)
}

func TestCORSAndMethods(t *testing.T) {
	ts, _ := newTestServer(t, defaultServerConfig(), serviceWith(nil, nil, []string{"https://cdn/x.mp4"}, nil))

	resp, body := testRequest(t, ts, http.MethodOptions, "/api/reel")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, body)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, OPTIONS", resp.Header.Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type", resp.Header.Get("Access-Control-Allow-Headers"))

	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
		resp, body = testRequest(t, ts, method, "/api/reel")
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode, method)
		assert.JSONEq(t, `{"error":"Method not allowed"}`, body)
		assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	}

	resp, _ = testRequest(t, ts, http.MethodGet, reelPath("https://instagram.com/reel/ABC"))
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestHealthz(t *testing.T) {
	ts, _ := newTestServer(t, defaultServerConfig(), serviceWith(nil, nil, nil, nil))

	resp, body := testRequest(t, ts, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var got healthResponse
	require.NoError(t, json.Unmarshal([]byte(body), &got))
	assert.Equal(t, "ok", got.Status)
	assert.Equal(t, logger.Version, got.Version)
}

func TestRequestID(t *testing.T) {
	ts, log := newTestServer(t, defaultServerConfig(), serviceWith(nil, nil, []string{"https://cdn/x.mp4"}, nil))

	resp, _ := testRequest(t, ts, http.MethodGet, "/healthz")
	generated := resp.Header.Get(RequestIDHeader)
	_, err := uuid.Parse(generated)
	assert.NoError(t, err)

	id := uuid.NewString()
	req, err := http.NewRequest(http.MethodGet, ts.URL+"/healthz", nil)
	require.NoError(t, err)
	req.Header.Set(RequestIDHeader, id)
	resp, err = ts.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, id, resp.Header.Get(RequestIDHeader))

	req.Header.Set(RequestIDHeader, "not-a-uuid")
	resp, err = ts.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	replaced := resp.Header.Get(RequestIDHeader)
	assert.NotEqual(t, "not-a-uuid", replaced)
	_, err = uuid.Parse(replaced)
	assert.NoError(t, err)

	var logged bool
	for _, m := range log.GetMessages() {
		if m.Message == "HTTP request completed" && m.Fields["request_id"] == id {
			logged = true
		}
	}
	assert.True(t, logged, "request log carries the request id")
}

func TestRateLimit(t *testing.T) {
	cfg := defaultServerConfig()
	cfg.RequestsPerMinute = 2
	ts, log := newTestServer(t, cfg, serviceWith(nil, nil, []string{"https://cdn/x.mp4"}, nil))

	path := reelPath("https://instagram.com/reel/ABC")
	for i := 0; i < 2; i++ {
		resp, _ := testRequest(t, ts, http.MethodGet, path)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp, body := testRequest(t, ts, http.MethodGet, path)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.JSONEq(t, `{"error":"Too many requests"}`, body)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
	assert.True(t, log.HasMessageContaining("Rate limit"))

	resp, _ = testRequest(t, ts, http.MethodOptions, "/api/reel")
	assert.Equal(t, http.StatusOK, resp.StatusCode, "preflight is not limited")
	resp, _ = testRequest(t, ts, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode, "health is not limited")
}

func TestRecoversFromPanics(t *testing.T) {
	ts, _ := newTestServer(t, defaultServerConfig(), resolverFunc(func(ctx context.Context, sourceURL string) (*reel.Result, error) {
		panic("boom")
	}))

	resp, _ := testRequest(t, ts, http.MethodGet, reelPath("https://instagram.com/reel/ABC"))
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestStartAndShutdown(t *testing.T) {
	cfg := defaultServerConfig()
	cfg.Address = "127.0.0.1:0"
	srv := New(cfg, serviceWith(nil, nil, nil, nil), nil)

	done := make(chan error, 1)
	go func() { done <- srv.Start() }()

	require.NoError(t, srv.Shutdown(context.Background()))
	assert.NoError(t, <-done)
	assert.True(t, strings.HasPrefix(srv.Addr(), "127.0.0.1"))
}
