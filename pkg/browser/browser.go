// Package browser drives a headless Chrome instance through chromedp to
// render JavaScript pages, submit login forms and manage browser cookies.
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"

	"github.com/jmylchreest/scrapemaster/internal/logger"
	"github.com/jmylchreest/scrapemaster/pkg/fetcher"
)

// Config holds configuration for the headless browser.
type Config struct {
	Headless        bool
	ExecPath        string        // Chrome binary; found automatically when empty
	UserAgent       string        // Browser default when empty
	Proxy           string        // Passed as --proxy-server
	ReadyTimeout    time.Duration // Bound on readiness and post-login waits
	NavigateTimeout time.Duration // Bound on a single navigation
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Headless:        true,
		ReadyTimeout:    10 * time.Second,
		NavigateTimeout: 30 * time.Second,
	}
}

// Browser is a lazily started Chrome instance. The process is launched on the
// first call that needs it and reused until Close. A Browser is not safe for
// concurrent use.
type Browser struct {
	config      Config
	allocCtx    context.Context
	cancelAlloc context.CancelFunc
	tabCtx      context.Context
	cancelTab   context.CancelFunc
}

// New returns a browser that has not been started yet.
func New(cfg Config) *Browser {
	def := DefaultConfig()
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = def.ReadyTimeout
	}
	if cfg.NavigateTimeout <= 0 {
		cfg.NavigateTimeout = def.NavigateTimeout
	}
	return &Browser{config: cfg}
}

// Started reports whether the browser process is running.
func (b *Browser) Started() bool {
	return b.tabCtx != nil
}

// acquire returns the shared tab context, launching Chrome on first use.
// The launch runs on the untimed tab context so later per-call deadlines
// never kill the browser process.
func (b *Browser) acquire() (context.Context, error) {
	if b.tabCtx != nil {
		return b.tabCtx, nil
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", b.config.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(1920, 1080),
	)
	execPath := b.config.ExecPath
	if execPath == "" {
		execPath = FindChromePath()
	}
	if execPath != "" {
		opts = append(opts, chromedp.ExecPath(execPath))
	} else {
		logger.Warn("no Chrome binary found - browser rendering may not work")
	}
	if b.config.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(b.config.UserAgent))
	}
	if b.config.Proxy != "" {
		opts = append(opts, chromedp.ProxyServer(b.config.Proxy))
	}

	b.allocCtx, b.cancelAlloc = chromedp.NewExecAllocator(context.Background(), opts...)
	b.tabCtx, b.cancelTab = chromedp.NewContext(b.allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			logger.Debug("chromedp", "msg", fmt.Sprintf(format, args...))
		}),
	)
	if err := chromedp.Run(b.tabCtx); err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}
	logger.Debug("browser started", "headless", b.config.Headless, "exec_path", execPath)
	return b.tabCtx, nil
}

// run executes actions on the shared tab, bounded by timeout and by ctx.
func (b *Browser) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	tab, err := b.acquire()
	if err != nil {
		return err
	}
	runCtx, cancel := context.WithTimeout(tab, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

// Fetch navigates to pageURL, waits up to ReadyTimeout for a body element and
// parses the rendered document.
func (b *Browser) Fetch(ctx context.Context, pageURL string) (*goquery.Document, error) {
	logger.Debug("browser fetch", "url", pageURL)

	if err := b.run(ctx, b.config.NavigateTimeout, chromedp.Navigate(pageURL)); err != nil {
		return nil, b.fetchError(ctx, pageURL, err)
	}
	if err := b.run(ctx, b.config.ReadyTimeout, chromedp.WaitReady("body", chromedp.ByQuery)); err != nil {
		return nil, b.fetchError(ctx, pageURL, err)
	}

	var html string
	if err := b.run(ctx, b.config.NavigateTimeout, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return nil, b.fetchError(ctx, pageURL, err)
	}

	logger.Debug("browser fetch complete", "url", pageURL, "html_size", len(html))
	return fetcher.Parse(pageURL, []byte(html))
}

// fetchError classifies a chromedp failure. A deadline hit while the caller's
// context is still live is a render timeout.
func (b *Browser) fetchError(ctx context.Context, pageURL string, err error) error {
	if ctx.Err() == nil && isDeadline(err) {
		return &fetcher.FetchError{
			URL:  pageURL,
			Kind: fetcher.KindRenderTimeout,
			Err:  fmt.Errorf("%w: %v", fetcher.ErrRenderTimeout, err),
		}
	}
	return &fetcher.FetchError{URL: pageURL, Kind: fetcher.KindTransport, Err: err}
}

func isDeadline(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "deadline exceeded")
}

// Close shuts the browser down. It is safe to call on a browser that was
// never started, and more than once.
func (b *Browser) Close() error {
	if b.cancelTab != nil {
		b.cancelTab()
	}
	if b.cancelAlloc != nil {
		b.cancelAlloc()
	}
	if b.tabCtx != nil {
		logger.Debug("browser closed")
	}
	b.tabCtx, b.cancelTab = nil, nil
	b.allocCtx, b.cancelAlloc = nil, nil
	return nil
}
