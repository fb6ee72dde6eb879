package instagram

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reelproxy/pkg/auth"
	"reelproxy/pkg/config"
	errs "reelproxy/pkg/errors"
	"reelproxy/pkg/logger"
)

func testConfig() config.InstagramConfig {
	cfg := config.DefaultConfig().Instagram
	cfg.Timeout = 5 * time.Second
	return cfg
}

func TestNewClient(t *testing.T) {
	log := logger.NewTestLogger()
	client := NewClient(testConfig(), nil, nil, log)

	assert.NotNil(t, client.httpClient)
	assert.Equal(t, BaseURL, client.baseURL)
	assert.Equal(t, DefaultDocID, client.docID)
	assert.Equal(t, DefaultAppID, client.appID)
	assert.Equal(t, 1, client.retry.MaxAttempts)
	assert.False(t, client.Authenticated())
}

func TestNewClientWithSessionFromConfig(t *testing.T) {
	cfg := testConfig()
	cfg.SessionID = "sess"
	cfg.CSRFToken = "csrf"

	client := NewClient(cfg, nil, nil, nil)
	assert.True(t, client.Authenticated())
}

func TestApplyAccount(t *testing.T) {
	var (
		mu      sync.Mutex
		cookies []*http.Cookie
		csrf    string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		cookies = r.Cookies()
		csrf = r.Header.Get("X-CSRFToken")
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(testConfig(), nil, nil, nil)
	client.ApplyAccount(&auth.Account{Username: "alice", SessionID: "sess-1", CSRFToken: "csrf-1"})

	body, _, err := client.Download(context.Background(), server.URL)
	require.NoError(t, err)
	body.Close()

	mu.Lock()
	names := map[string]string{}
	for _, c := range cookies {
		names[c.Name] = c.Value
	}
	assert.Equal(t, "sess-1", names["sessionid"])
	assert.Equal(t, "csrf-1", names["csrftoken"])
	assert.Equal(t, "csrf-1", csrf)
	mu.Unlock()

	client.ApplyAccount(nil)
	assert.False(t, client.Authenticated())

	body, _, err = client.Download(context.Background(), server.URL)
	require.NoError(t, err)
	body.Close()

	mu.Lock()
	assert.Empty(t, cookies)
	assert.Empty(t, csrf)
	mu.Unlock()
}

func TestCheckResponseStatus(t *testing.T) {
	tests := []struct {
		status   int
		wantType errs.ErrorType
	}{
		{http.StatusUnauthorized, errs.ErrorTypeAuth},
		{http.StatusForbidden, errs.ErrorTypeAuth},
		{http.StatusNotFound, errs.ErrorTypeNotFound},
		{http.StatusTooManyRequests, errs.ErrorTypeRateLimit},
		{http.StatusInternalServerError, errs.ErrorTypeServerError},
		{http.StatusBadGateway, errs.ErrorTypeServerError},
		{http.StatusTeapot, errs.ErrorTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			log := logger.NewTestLogger()
			client := NewClient(testConfig(), nil, nil, log)

			_, _, err := client.Download(context.Background(), server.URL)
			require.Error(t, err)
			assert.Equal(t, tt.wantType, errs.TypeOf(err))

			var typed *errs.Error
			require.ErrorAs(t, err, &typed)
			assert.Equal(t, tt.status, typed.Code)
		})
	}
}

func TestDownload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		_, _ = w.Write([]byte("0123456789"))
	}))
	defer server.Close()

	client := NewClient(testConfig(), nil, nil, nil)
	body, size, err := client.Download(context.Background(), server.URL+"/clip.mp4")
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "0123456789", string(data))
	assert.Equal(t, int64(10), size)
}

func TestDownloadNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := server.URL
	server.Close()

	log := logger.NewTestLogger()
	client := NewClient(testConfig(), nil, nil, log)

	_, _, err := client.Download(context.Background(), addr)
	require.Error(t, err)
	assert.Equal(t, errs.ErrorTypeNetwork, errs.TypeOf(err))
	assert.True(t, log.HasMessage("HTTP request failed"))
}

func TestDownloadCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	client := NewClient(testConfig(), nil, nil, nil)
	_, _, err := client.Download(ctx, server.URL)
	require.Error(t, err)
	assert.Equal(t, errs.ErrorTypeTimeout, errs.TypeOf(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
