package fetcher

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newTestSession(t *testing.T, mutate func(*SessionConfig)) *Session {
	t.Helper()
	cfg := DefaultSessionConfig()
	cfg.Timeout = 5 * time.Second
	if mutate != nil {
		mutate(&cfg)
	}
	s, err := NewSession(cfg)
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	return s
}

func TestNewSession_InvalidConfig(t *testing.T) {
	cfg := DefaultSessionConfig()
	cfg.Retries = -1
	if _, err := NewSession(cfg); err == nil {
		t.Error("expected error for negative retries")
	}
}

func TestNewSession_EmptyUserAgentsUsesDefaults(t *testing.T) {
	s := newTestSession(t, func(c *SessionConfig) { c.UserAgents = nil })
	if len(s.config.UserAgents) != len(DefaultUserAgents) {
		t.Errorf("expected default pool, got %d agents", len(s.config.UserAgents))
	}
}

func TestSession_Fetch_ParsesDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><body><h1>Hello</h1></body></html>`))
	}))
	defer srv.Close()

	s := newTestSession(t, nil)
	doc, err := s.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if got := doc.Find("h1").Text(); got != "Hello" {
		t.Errorf("expected h1 'Hello', got %q", got)
	}
	if doc.Url == nil || !strings.HasPrefix(doc.Url.String(), srv.URL) {
		t.Errorf("expected document URL to be set, got %v", doc.Url)
	}
}

func TestSession_UserAgentFromPool(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.UserAgent())
		mu.Unlock()
	}))
	defer srv.Close()

	pool := []string{"agent-a", "agent-b"}
	s := newTestSession(t, func(c *SessionConfig) { c.UserAgents = pool })
	for range 10 {
		if _, err := s.Get(context.Background(), srv.URL); err != nil {
			t.Fatalf("Get() error = %v", err)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 10 {
		t.Fatalf("expected 10 requests, got %d", len(seen))
	}
	for _, ua := range seen {
		if !slices.Contains(pool, ua) {
			t.Errorf("user agent %q not from pool", ua)
		}
	}
	if !slices.Contains(pool, s.UserAgent()) {
		t.Errorf("UserAgent() = %q, not from pool", s.UserAgent())
	}
}

func TestSession_CustomHeaders(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Accept-Language")
	}))
	defer srv.Close()

	s := newTestSession(t, func(c *SessionConfig) {
		c.Headers = map[string]string{"Accept-Language": "en-GB"}
	})
	if _, err := s.Get(context.Background(), srv.URL); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != "en-GB" {
		t.Errorf("expected Accept-Language en-GB, got %q", got)
	}
}

func TestSession_Non2xxIsStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	s := newTestSession(t, nil)
	_, err := s.Fetch(context.Background(), srv.URL+"/missing")

	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FetchError, got %T: %v", err, err)
	}
	if fe.Kind != KindStatus || fe.StatusCode != http.StatusNotFound {
		t.Errorf("expected status 404 error, got kind=%s status=%d", fe.Kind, fe.StatusCode)
	}
	if fe.Temporary() {
		t.Error("404 should not be temporary")
	}
}

func TestSession_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	addr := srv.URL
	srv.Close()

	s := newTestSession(t, nil)
	_, err := s.Fetch(context.Background(), addr)

	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FetchError, got %T: %v", err, err)
	}
	if fe.Kind != KindTransport {
		t.Errorf("expected transport kind, got %s", fe.Kind)
	}
}

func TestSession_RetriesTemporaryFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	s := newTestSession(t, func(c *SessionConfig) { c.Retries = 3 })
	resp, err := s.Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(resp.Body) != "ok" {
		t.Errorf("expected body 'ok', got %q", resp.Body)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestSession_NoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	s := newTestSession(t, func(c *SessionConfig) { c.Retries = 3 })
	if _, err := s.Get(context.Background(), srv.URL); err == nil {
		t.Fatal("expected error for 403")
	}
	if calls.Load() != 1 {
		t.Errorf("expected a single attempt, got %d", calls.Load())
	}
}

func TestSession_PostFormAndCookies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/login":
			if r.Method != http.MethodPost {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			if err := r.ParseForm(); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			if r.PostForm.Get("user") != "ada" || r.PostForm.Get("pass") != "secret" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			http.SetCookie(w, &http.Cookie{Name: "session", Value: "s3cr3t", Path: "/"})
		case "/account":
			if c, err := r.Cookie("session"); err != nil || c.Value != "s3cr3t" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_, _ = w.Write([]byte("<p>welcome</p>"))
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	s := newTestSession(t, nil)

	if _, err := s.PostForm(ctx, srv.URL+"/login", map[string]string{"user": "ada", "pass": "wrong"}); err == nil {
		t.Fatal("expected error for bad credentials")
	}
	if _, err := s.PostForm(ctx, srv.URL+"/login", map[string]string{"user": "ada", "pass": "secret"}); err != nil {
		t.Fatalf("PostForm() error = %v", err)
	}

	cookies := s.Cookies(srv.URL)
	if len(cookies) != 1 || cookies[0].Name != "session" {
		t.Fatalf("expected session cookie, got %v", cookies)
	}

	path := filepath.Join(t.TempDir(), "cookies.gob")
	if err := s.SaveCookies(path); err != nil {
		t.Fatalf("SaveCookies() error = %v", err)
	}

	fresh := newTestSession(t, nil)
	if _, err := fresh.Get(ctx, srv.URL+"/account"); err == nil {
		t.Fatal("expected fresh session to be unauthorized")
	}
	if err := fresh.LoadCookies(path); err != nil {
		t.Fatalf("LoadCookies() error = %v", err)
	}
	resp, err := fresh.Get(ctx, srv.URL+"/account")
	if err != nil {
		t.Fatalf("Get() after LoadCookies error = %v", err)
	}
	if !strings.Contains(string(resp.Body), "welcome") {
		t.Errorf("unexpected body %q", resp.Body)
	}
}

func TestSession_LoadCookies_MissingFile(t *testing.T) {
	s := newTestSession(t, nil)
	if err := s.LoadCookies(filepath.Join(t.TempDir(), "absent.gob")); err == nil {
		t.Error("expected error for missing cookie file")
	}
}

func TestSession_Proxy(t *testing.T) {
	var proxied atomic.Bool
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Host == "site.invalid" {
			proxied.Store(true)
		}
		_, _ = w.Write([]byte("<h1>via proxy</h1>"))
	}))
	defer proxy.Close()

	s := newTestSession(t, nil)
	if err := s.SetProxy(proxy.URL); err != nil {
		t.Fatalf("SetProxy() error = %v", err)
	}

	doc, err := s.Fetch(context.Background(), "http://site.invalid/page")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if !proxied.Load() {
		t.Error("expected request to go through the proxy")
	}
	if got := doc.Find("h1").Text(); got != "via proxy" {
		t.Errorf("unexpected h1 %q", got)
	}
}

func TestSession_DownloadSizeLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(make([]byte, 2048))
	}))
	defer srv.Close()

	s := newTestSession(t, func(c *SessionConfig) { c.MaxImageSize = 1024 })
	if _, err := s.Download(context.Background(), srv.URL); err == nil {
		t.Error("expected error for oversized download")
	}

	s = newTestSession(t, func(c *SessionConfig) { c.MaxImageSize = 4096 })
	data, err := s.Download(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if len(data) != 2048 {
		t.Errorf("expected 2048 bytes, got %d", len(data))
	}
}

func TestSession_DownloadIgnoresPageBodyLimit(t *testing.T) {
	body := make([]byte, 12<<20)
	for i := range body {
		body[i] = byte(i)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	// Default config: 10 MiB page cap, unlimited images.
	s := newTestSession(t, nil)
	data, err := s.Download(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if !bytes.Equal(data, body) {
		t.Errorf("expected %d bytes intact, got %d", len(body), len(data))
	}

	// An image limit above the page cap still yields the whole body.
	s = newTestSession(t, func(c *SessionConfig) { c.MaxImageSize = 16 << 20 })
	data, err = s.Download(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Download() with 16MiB limit error = %v", err)
	}
	if len(data) != len(body) {
		t.Errorf("expected %d bytes, got %d", len(body), len(data))
	}
}

func TestSession_PageBodyLimitStillApplies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "4096")
		_, _ = w.Write(make([]byte, 4096))
	}))
	defer srv.Close()

	s := newTestSession(t, func(c *SessionConfig) { c.MaxBodySize = 1024 })
	data, err := s.Download(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if len(data) != 4096 {
		t.Errorf("download should not be capped by MaxBodySize, got %d bytes", len(data))
	}

	resp, err := s.Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(resp.Body) != 1024 {
		t.Errorf("page body should be capped at 1024 bytes, got %d", len(resp.Body))
	}
}

func TestSession_DownloadShortBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "2048")
		_, _ = w.Write(make([]byte, 1024))
	}))
	defer srv.Close()

	s := newTestSession(t, nil)
	_, err := s.Download(context.Background(), srv.URL)
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FetchError for a short body, got %v", err)
	}
}
