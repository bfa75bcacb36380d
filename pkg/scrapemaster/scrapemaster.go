// Package scrapemaster is the public API for scraping text and images from
// web pages and crawling sites.
//
// A ScrapeMaster holds a current URL and the most recently fetched document.
// Pages are fetched over plain HTTP or, when JavaScript rendering is needed,
// through a headless Chrome started on first use.
package scrapemaster

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/PuerkitoBio/goquery"
	"github.com/dustin/go-humanize"
	"github.com/go-playground/validator/v10"

	"github.com/jmylchreest/scrapemaster/internal/logger"
	"github.com/jmylchreest/scrapemaster/pkg/artifact"
	"github.com/jmylchreest/scrapemaster/pkg/browser"
	"github.com/jmylchreest/scrapemaster/pkg/crawler"
	"github.com/jmylchreest/scrapemaster/pkg/extract"
	"github.com/jmylchreest/scrapemaster/pkg/fetcher"
)

// Version returns the module version of the scrapemaster library.
// Returns "(devel)" when built from source without version info.
func Version() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		return info.Main.Version
	}
	return "(unknown)"
}

// PageResult is the text and images scraped from one page.
type PageResult struct {
	URL       string   `json:"url" yaml:"url"`
	Texts     []string `json:"texts" yaml:"texts"`
	ImageURLs []string `json:"image_urls" yaml:"image_urls"`
}

// ScrapeMaster scrapes a current URL over a persistent HTTP session and an
// optional headless browser. It is not safe for concurrent use.
type ScrapeMaster struct {
	url      string
	config   Config
	validate *validator.Validate
	session  *fetcher.Session
	browser  *browser.Browser
	doc      *goquery.Document
}

// New creates a ScrapeMaster for rawURL.
func New(rawURL string, opts ...Option) (*ScrapeMaster, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Var(rawURL, "required,http_url"); err != nil {
		return nil, fmt.Errorf("invalid url %q: %w", rawURL, err)
	}
	if err := v.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	session, err := fetcher.NewSession(fetcher.SessionConfig{
		UserAgents:   cfg.UserAgents,
		Headers:      cfg.Headers,
		Proxy:        cfg.Proxy,
		Timeout:      cfg.Timeout,
		Retries:      cfg.Retries,
		MaxBodySize:  fetcher.DefaultSessionConfig().MaxBodySize,
		MaxImageSize: cfg.MaxImageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	if cfg.Proxy != "" && cfg.Browser.Proxy == "" {
		cfg.Browser.Proxy = cfg.Proxy
	}

	return &ScrapeMaster{
		url:      rawURL,
		config:   cfg,
		validate: v,
		session:  session,
		browser:  browser.New(cfg.Browser),
	}, nil
}

// URL returns the current URL.
func (s *ScrapeMaster) URL() string {
	return s.url
}

// SetURL changes the current URL and discards the current document.
func (s *ScrapeMaster) SetURL(rawURL string) {
	s.url = rawURL
	s.doc = nil
}

// Document returns the current document, or nil before the first fetch.
func (s *ScrapeMaster) Document() *goquery.Document {
	return s.doc
}

// Session returns the underlying HTTP session.
func (s *ScrapeMaster) Session() *fetcher.Session {
	return s.session
}

// Fetch retrieves the current URL, rendering JavaScript in the headless
// browser when renderJS is set, and makes the result the current document.
func (s *ScrapeMaster) Fetch(ctx context.Context, renderJS bool) (*goquery.Document, error) {
	if renderJS {
		return s.load(ctx, s.browser)
	}
	return s.load(ctx, s.session)
}

// FetchAuto retrieves the current URL over HTTP and renders it in the
// headless browser only when the static page looks client-rendered or the
// HTTP request fails at the transport level.
func (s *ScrapeMaster) FetchAuto(ctx context.Context) (*goquery.Document, error) {
	return s.load(ctx, &fetcher.Auto{Static: s.session, Dynamic: s.browser})
}

func (s *ScrapeMaster) load(ctx context.Context, f fetcher.Fetcher) (*goquery.Document, error) {
	doc, err := f.Fetch(ctx, s.url)
	if err != nil {
		return nil, err
	}
	s.doc = doc
	return doc, nil
}

// FetchPage retrieves the current URL over HTTP.
func (s *ScrapeMaster) FetchPage(ctx context.Context) (*goquery.Document, error) {
	return s.Fetch(ctx, false)
}

// FetchPageWithJS retrieves the current URL through the headless browser.
func (s *ScrapeMaster) FetchPageWithJS(ctx context.Context) (*goquery.Document, error) {
	return s.Fetch(ctx, true)
}

// ensureDocument fetches when renderJS is set or nothing is loaded yet.
func (s *ScrapeMaster) ensureDocument(ctx context.Context, renderJS bool) (*goquery.Document, error) {
	if !renderJS && s.doc != nil {
		return s.doc, nil
	}
	return s.Fetch(ctx, renderJS)
}

// ScrapeText returns the text fragments matched by selectors (the default
// text selectors when empty). Fetch failures are logged and yield an empty
// result.
func (s *ScrapeMaster) ScrapeText(ctx context.Context, selectors []string, renderJS bool) []string {
	doc, err := s.ensureDocument(ctx, renderJS)
	if err != nil {
		logger.Error("couldn't load page", "url", s.url, "error", err)
		return []string{}
	}
	return orEmpty(extract.Text(doc, selectors))
}

// ScrapeImages returns the absolute image URLs matched by selectors (the
// default image selector when empty). Fetch failures are logged and yield an
// empty result.
func (s *ScrapeMaster) ScrapeImages(ctx context.Context, selectors []string, renderJS bool) []string {
	doc, err := s.ensureDocument(ctx, renderJS)
	if err != nil {
		logger.Error("couldn't load page", "url", s.url, "error", err)
		return []string{}
	}
	return orEmpty(extract.Images(doc, s.url, selectors))
}

// ScrapeAll scrapes texts and image URLs from the current page and, when
// opts.OutputDir is set, downloads the images there. Failures are logged.
func (s *ScrapeMaster) ScrapeAll(ctx context.Context, opts ScrapeOptions) PageResult {
	result := PageResult{URL: s.url, Texts: []string{}, ImageURLs: []string{}}
	var doc *goquery.Document
	var err error
	if opts.AutoRender && !opts.RenderJS && s.doc == nil {
		doc, err = s.FetchAuto(ctx)
	} else {
		doc, err = s.ensureDocument(ctx, opts.RenderJS)
	}
	if err != nil {
		logger.Error("couldn't load page", "url", s.url, "error", err)
		return result
	}
	result.Texts = orEmpty(extract.Text(doc, opts.TextSelectors))
	result.ImageURLs = orEmpty(extract.Images(doc, s.url, opts.ImageSelectors))

	if opts.OutputDir != "" && len(result.ImageURLs) > 0 {
		if _, err := s.DownloadImages(ctx, result.ImageURLs, opts.OutputDir); err != nil {
			logger.Error("image download failed", "url", s.url, "error", err)
		}
	}
	return result
}

// DownloadImages saves each URL in urls as {dir}/images/image_{i}.jpg and
// returns the number saved. A failed image does not stop the others; all
// failures are returned joined.
func (s *ScrapeMaster) DownloadImages(ctx context.Context, urls []string, dir string) (int, error) {
	store, err := artifact.New(dir, "")
	if err != nil {
		return 0, err
	}

	var errs []error
	saved := 0
	var total uint64
	for i, src := range urls {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		data, err := s.session.Download(ctx, src)
		if err == nil {
			_, err = store.WriteImage(i, data)
		}
		if err != nil {
			logger.Warn("image download failed", "url", src, "error", err)
			errs = append(errs, err)
			continue
		}
		saved++
		total += uint64(len(data))
	}
	logger.Info("images downloaded", "saved", saved, "failed", len(urls)-saved, "size", humanize.Bytes(total), "dir", dir)
	return saved, errors.Join(errs...)
}

// ScrapeWebsite crawls from the current URL, writing one text file per page
// and the page's images under opts.OutputDir. Each written page becomes the
// current URL and document in turn, so after the crawl they are those of the
// last page written.
func (s *ScrapeMaster) ScrapeWebsite(ctx context.Context, opts CrawlOptions) (crawler.Stats, error) {
	if err := s.validate.Struct(opts); err != nil {
		return crawler.Stats{}, fmt.Errorf("invalid crawl options: %w", err)
	}
	store, err := artifact.New(opts.OutputDir, opts.Prefix)
	if err != nil {
		return crawler.Stats{}, err
	}
	c, err := crawler.New(s.session, s.session, store, crawler.Config{
		MaxDepth:       opts.MaxDepth,
		TextSelectors:  opts.TextSelectors,
		ImageSelectors: opts.ImageSelectors,
		OnPage: func(p crawler.Page) {
			s.url, s.doc = p.URL, p.Document
			if opts.OnPage != nil {
				opts.OnPage(p)
			}
		},
	})
	if err != nil {
		return crawler.Stats{}, err
	}
	return c.Crawl(ctx, s.url)
}

// UseProxy routes subsequent HTTP requests through proxy. A running browser
// is closed so the next browser call starts with the new proxy.
func (s *ScrapeMaster) UseProxy(proxy string) error {
	if err := s.validate.Var(proxy, "required,url"); err != nil {
		return fmt.Errorf("invalid proxy %q: %w", proxy, err)
	}
	if err := s.session.SetProxy(proxy); err != nil {
		return err
	}
	s.config.Proxy = proxy
	s.config.Browser.Proxy = proxy
	if err := s.browser.Close(); err != nil {
		return err
	}
	s.browser = browser.New(s.config.Browser)
	return nil
}

// Close releases the headless browser, if one was started.
func (s *ScrapeMaster) Close() error {
	return s.browser.Close()
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
