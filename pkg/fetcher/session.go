package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/cenkalti/backoff/v4"
	"github.com/go-playground/validator/v10"
	"github.com/gocolly/colly/v2"
	"golang.org/x/net/publicsuffix"

	"github.com/jmylchreest/scrapemaster/internal/logger"
)

// DefaultUserAgents is the pool a session picks from before every request.
var DefaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/14.1.1 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.114 Safari/537.36",
}

// SessionConfig holds configuration for an HTTP session.
type SessionConfig struct {
	UserAgents   []string          `validate:"dive,required"`
	Headers      map[string]string // Sent with every request
	Proxy        string            `validate:"omitempty,url"`
	Timeout      time.Duration     `validate:"gte=0"`
	Retries      int               `validate:"gte=0"` // Extra attempts for temporary failures
	MaxBodySize  int               `validate:"gte=0"` // Page body cap, 0 = unlimited
	MaxImageSize int64             `validate:"gte=0"` // Download cap, 0 = unlimited
}

// DefaultSessionConfig returns sensible defaults.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		UserAgents:  DefaultUserAgents,
		Timeout:     30 * time.Second,
		MaxBodySize: 10 * 1024 * 1024,
	}
}

// Response is a completed HTTP exchange.
type Response struct {
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Session is a long-lived HTTP client built on a single colly collector.
// Cookies, proxy and headers persist across requests. A Session is not safe
// for concurrent use.
type Session struct {
	collector *colly.Collector
	jar       *cookiejar.Jar
	config    SessionConfig
	origins   map[string]struct{} // hosts contacted, for cookie snapshots
}

const responseKey = "response"

// NewSession creates a session from cfg.
func NewSession(cfg SessionConfig) (*Session, error) {
	if len(cfg.UserAgents) == 0 {
		cfg.UserAgents = DefaultUserAgents
	}
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid session config: %w", err)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	c := colly.NewCollector(colly.AllowURLRevisit())
	c.ParseHTTPErrorResponse = true
	c.SetCookieJar(jar)
	if cfg.Timeout > 0 {
		c.SetRequestTimeout(cfg.Timeout)
	}
	c.OnResponse(func(r *colly.Response) {
		r.Ctx.Put(responseKey, r)
	})

	s := &Session{
		collector: c,
		jar:       jar,
		config:    cfg,
		origins:   make(map[string]struct{}),
	}
	if cfg.Proxy != "" {
		if err := s.SetProxy(cfg.Proxy); err != nil {
			return nil, err
		}
	}

	logger.Debug("http session created",
		"user_agents", len(cfg.UserAgents),
		"proxy", cfg.Proxy != "",
		"timeout", cfg.Timeout,
		"retries", cfg.Retries)
	return s, nil
}

// SetProxy routes both http and https traffic through proxy.
func (s *Session) SetProxy(proxy string) error {
	if err := s.collector.SetProxy(proxy); err != nil {
		return fmt.Errorf("invalid proxy %q: %w", proxy, err)
	}
	s.config.Proxy = proxy
	return nil
}

// UserAgent returns the user agent sent with the most recent request.
func (s *Session) UserAgent() string {
	return s.collector.UserAgent
}

// Fetch issues a GET and parses the body as HTML.
func (s *Session) Fetch(ctx context.Context, pageURL string) (*goquery.Document, error) {
	resp, err := s.Get(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	return Parse(resp.URL, resp.Body)
}

// Get issues a GET. Non-2xx responses are returned as a *FetchError.
func (s *Session) Get(ctx context.Context, target string) (*Response, error) {
	return s.do(ctx, http.MethodGet, target, nil, s.config.MaxBodySize)
}

// PostForm submits form as application/x-www-form-urlencoded.
func (s *Session) PostForm(ctx context.Context, target string, form map[string]string) (*Response, error) {
	values := url.Values{}
	for k, v := range form {
		values.Set(k, v)
	}
	return s.do(ctx, http.MethodPost, target, values, s.config.MaxBodySize)
}

// Download fetches the raw body of target, enforcing MaxImageSize. Downloads
// are not subject to MaxBodySize, and a body shorter than its declared
// Content-Length is reported as an error instead of being returned cut short.
func (s *Session) Download(ctx context.Context, target string) ([]byte, error) {
	bodyLimit := 0 // unlimited
	if limit := s.config.MaxImageSize; limit > 0 {
		// One byte past the limit is enough to tell an oversized body apart.
		bodyLimit = int(limit) + 1
	}
	resp, err := s.do(ctx, http.MethodGet, target, nil, bodyLimit)
	if err != nil {
		return nil, err
	}

	size := int64(len(resp.Body))
	declared := int64(-1)
	if cl, err := strconv.ParseInt(resp.Header.Get("Content-Length"), 10, 64); err == nil {
		declared = cl
	}
	if limit := s.config.MaxImageSize; limit > 0 && max(size, declared) > limit {
		return nil, &FetchError{
			URL:  target,
			Kind: KindTransport,
			Err:  fmt.Errorf("body of %d bytes exceeds limit of %d", max(size, declared), limit),
		}
	}
	// Content-Length describes the encoded body when Content-Encoding is set.
	if declared >= 0 && size < declared && resp.Header.Get("Content-Encoding") == "" {
		return nil, &FetchError{
			URL:  target,
			Kind: KindTransport,
			Err:  fmt.Errorf("body truncated: received %d of %d bytes", size, declared),
		}
	}
	return resp.Body, nil
}

// do performs a request, retrying temporary failures. bodyLimit caps the
// bytes read from the response, 0 meaning unlimited.
func (s *Session) do(ctx context.Context, method, target string, form url.Values, bodyLimit int) (*Response, error) {
	if s.config.Retries == 0 {
		return s.once(ctx, method, target, form, bodyLimit)
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(s.config.Retries)),
		ctx)
	attempt := 0
	return backoff.RetryWithData(func() (*Response, error) {
		attempt++
		resp, err := s.once(ctx, method, target, form, bodyLimit)
		if err == nil {
			return resp, nil
		}
		var fe *FetchError
		if ctx.Err() != nil || !errors.As(err, &fe) || !fe.Temporary() {
			return nil, backoff.Permanent(err)
		}
		logger.Debug("retrying request", "url", target, "attempt", attempt, "error", err)
		return nil, err
	}, policy)
}

func (s *Session) once(ctx context.Context, method, target string, form url.Values, bodyLimit int) (*Response, error) {
	s.collector.Context = ctx
	s.collector.MaxBodySize = bodyLimit
	s.collector.UserAgent = s.pickUserAgent()

	hdr := http.Header{}
	for k, v := range s.config.Headers {
		hdr.Set(k, v)
	}
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
		hdr.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	reqCtx := colly.NewContext()
	logger.Debug("http request", "method", method, "url", target, "user_agent", s.collector.UserAgent)
	if err := s.collector.Request(method, target, body, reqCtx, hdr); err != nil {
		return nil, &FetchError{URL: target, Kind: KindTransport, Err: err}
	}
	s.remember(target)

	r, ok := reqCtx.GetAny(responseKey).(*colly.Response)
	if !ok {
		return nil, &FetchError{URL: target, Kind: KindTransport, Err: errors.New("no response received")}
	}

	resp := &Response{
		URL:        r.Request.URL.String(),
		StatusCode: r.StatusCode,
		Body:       r.Body,
	}
	if r.Headers != nil {
		resp.Header = *r.Headers
	} else {
		resp.Header = http.Header{}
	}

	logger.Debug("http response", "url", target, "status", r.StatusCode, "body_size", len(r.Body))
	if r.StatusCode < 200 || r.StatusCode > 299 {
		return resp, &FetchError{URL: target, Kind: KindStatus, StatusCode: r.StatusCode}
	}
	return resp, nil
}

func (s *Session) pickUserAgent() string {
	return s.config.UserAgents[rand.IntN(len(s.config.UserAgents))]
}

// remember records the origin of target so its cookies can be snapshotted.
func (s *Session) remember(target string) {
	u, err := url.Parse(target)
	if err != nil || u.Host == "" {
		return
	}
	s.origins[u.Scheme+"://"+u.Host] = struct{}{}
}
