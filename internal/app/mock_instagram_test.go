package app

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
)

// mockPost is one post served by mockInstagram
type mockPost struct {
	Description string
	Title       string
	Video       bool
}

// mockInstagram simulates the GraphQL endpoint, post pages and the CDN
type mockInstagram struct {
	server       *httptest.Server
	requestCount int32

	mu             sync.RWMutex
	posts          map[string]mockPost
	errorResponses map[string]int
	sessions       []string
}

func newMockInstagram() *mockInstagram {
	m := &mockInstagram{
		posts:          make(map[string]mockPost),
		errorResponses: make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /graphql/query", m.handleGraphQL)
	mux.HandleFunc("GET /reel/{code}/", m.handlePage)
	mux.HandleFunc("GET /p/{code}/", m.handlePage)
	mux.HandleFunc("GET /cdn/{file}", m.handleCDN)

	m.server = httptest.NewServer(mux)
	return m
}

func (m *mockInstagram) URL() string { return m.server.URL }

func (m *mockInstagram) Close() { m.server.Close() }

// AddPost registers a post under shortcode
func (m *mockInstagram) AddPost(shortcode string, post mockPost) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.posts[shortcode] = post
}

// SetErrorResponse makes requests for path fail with code
func (m *mockInstagram) SetErrorResponse(path string, code int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorResponses[path] = code
}

// Sessions returns the sessionid cookies seen by the GraphQL endpoint
func (m *mockInstagram) Sessions() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.sessions...)
}

func (m *mockInstagram) RequestCount() int {
	return int(atomic.LoadInt32(&m.requestCount))
}

func (m *mockInstagram) failure(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.errorResponses[path]
}

func (m *mockInstagram) post(shortcode string) (mockPost, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.posts[shortcode]
	return p, ok
}

func (m *mockInstagram) handleGraphQL(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt32(&m.requestCount, 1)

	if code := m.failure(r.URL.Path); code > 0 {
		w.WriteHeader(code)
		return
	}

	session := ""
	if c, err := r.Cookie("sessionid"); err == nil {
		session = c.Value
	}
	m.mu.Lock()
	m.sessions = append(m.sessions, session)
	m.mu.Unlock()

	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	var variables struct {
		Shortcode string `json:"shortcode"`
	}
	if err := json.Unmarshal([]byte(r.PostForm.Get("variables")), &variables); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	post, ok := m.post(variables.Shortcode)
	if !ok {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data":   map[string]interface{}{"xdt_shortcode_media": nil},
			"status": "ok",
		})
		return
	}

	code := variables.Shortcode
	media := map[string]interface{}{
		"__typename":    "XDTGraphImage",
		"shortcode":     code,
		"is_video":      post.Video,
		"display_url":   m.server.URL + "/cdn/" + code + ".jpg",
		"thumbnail_src": m.server.URL + "/cdn/" + code + ".jpg",
		"owner":         map[string]interface{}{"id": "1", "username": "sunsets"},
	}
	if post.Video {
		media["__typename"] = "XDTGraphVideo"
		media["video_url"] = m.server.URL + "/cdn/" + code + ".mp4"
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"data":   map[string]interface{}{"xdt_shortcode_media": media},
		"status": "ok",
	})
}

func (m *mockInstagram) handlePage(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt32(&m.requestCount, 1)

	if code := m.failure(r.URL.Path); code > 0 {
		w.WriteHeader(code)
		return
	}

	code := r.PathValue("code")
	post, ok := m.post(code)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	var meta strings.Builder
	if post.Title != "" {
		fmt.Fprintf(&meta, `<meta property="og:title" content="%s">`, post.Title)
	}
	if post.Description != "" {
		fmt.Fprintf(&meta, `<meta property="og:description" content="%s">`, post.Description)
	}
	fmt.Fprintf(&meta, `<meta property="og:image" content="%s/cdn/%s.jpg">`, m.server.URL, code)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, "<!DOCTYPE html><html><head>%s</head><body></body></html>", meta.String())
}

// mediaBytes is the body served for every CDN file
func mediaBytes() []byte {
	b := make([]byte, 1024)
	for i := range b {
		b[i] = byte(i % 256)
	}
	return b
}

func (m *mockInstagram) handleCDN(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt32(&m.requestCount, 1)

	if code := m.failure(r.URL.Path); code > 0 {
		w.WriteHeader(code)
		return
	}

	body := mediaBytes()
	if strings.HasSuffix(r.PathValue("file"), ".mp4") {
		w.Header().Set("Content-Type", "video/mp4")
	} else {
		w.Header().Set("Content-Type", "image/jpeg")
	}
	w.Header().Set("Content-Length", fmt.Sprint(len(body)))
	w.Write(body)
}
