package scrapemaster

import (
	"time"

	"github.com/jmylchreest/scrapemaster/pkg/browser"
	"github.com/jmylchreest/scrapemaster/pkg/crawler"
	"github.com/jmylchreest/scrapemaster/pkg/fetcher"
)

// Config holds all ScrapeMaster configuration.
type Config struct {
	// HTTP session
	UserAgents   []string          `validate:"dive,required"`
	Headers      map[string]string // Sent with every HTTP request
	Proxy        string            `validate:"omitempty,url"`
	Timeout      time.Duration     `validate:"gte=0"`
	Retries      int               `validate:"gte=0"`
	MaxImageSize int64             `validate:"gte=0"` // 0 = unlimited

	// Cookie snapshots
	CookieFile        string `validate:"required"`
	BrowserCookieFile string `validate:"required"`

	// Headless browser
	Browser browser.Config
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	session := fetcher.DefaultSessionConfig()
	return Config{
		UserAgents:        session.UserAgents,
		Timeout:           session.Timeout,
		CookieFile:        "cookies.gob",
		BrowserCookieFile: "browser_cookies.json",
		Browser:           browser.DefaultConfig(),
	}
}

// Option configures ScrapeMaster.
type Option func(*Config)

// WithUserAgents replaces the user agent pool.
func WithUserAgents(agents ...string) Option {
	return func(c *Config) {
		c.UserAgents = agents
	}
}

// WithHeaders sets headers sent with every HTTP request.
func WithHeaders(headers map[string]string) Option {
	return func(c *Config) {
		c.Headers = headers
	}
}

// WithProxy routes HTTP and browser traffic through proxy.
func WithProxy(proxy string) Option {
	return func(c *Config) {
		c.Proxy = proxy
	}
}

// WithTimeout sets the HTTP request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.Timeout = d
	}
}

// WithRetries enables up to n retries of temporary HTTP failures.
func WithRetries(n int) Option {
	return func(c *Config) {
		c.Retries = n
	}
}

// WithMaxImageSize caps the size of downloaded images.
func WithMaxImageSize(n int64) Option {
	return func(c *Config) {
		c.MaxImageSize = n
	}
}

// WithCookieFile sets the HTTP cookie snapshot path.
func WithCookieFile(path string) Option {
	return func(c *Config) {
		c.CookieFile = path
	}
}

// WithBrowserCookieFile sets the browser cookie snapshot path.
func WithBrowserCookieFile(path string) Option {
	return func(c *Config) {
		c.BrowserCookieFile = path
	}
}

// WithBrowserConfig sets the headless browser configuration.
func WithBrowserConfig(cfg browser.Config) Option {
	return func(c *Config) {
		c.Browser = cfg
	}
}

// CrawlOptions configures ScrapeWebsite.
type CrawlOptions struct {
	MaxDepth       int    `validate:"gte=0"`
	OutputDir      string `validate:"required"`
	Prefix         string
	TextSelectors  []string
	ImageSelectors []string
	OnPage         func(crawler.Page)
}

// DefaultCrawlOptions returns sensible crawl defaults.
func DefaultCrawlOptions() CrawlOptions {
	return CrawlOptions{
		MaxDepth:  crawler.DefaultConfig().MaxDepth,
		OutputDir: "output",
		Prefix:    "page_",
	}
}

// ScrapeOptions configures ScrapeAll.
type ScrapeOptions struct {
	TextSelectors  []string
	ImageSelectors []string
	OutputDir      string // Images are downloaded here when set
	RenderJS       bool
	AutoRender     bool // Render only when the static page needs it
}
