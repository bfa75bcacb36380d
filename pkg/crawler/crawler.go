// Package crawler performs depth-bounded, depth-first site crawls that write
// each page's text and images to an artifact store.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/dustin/go-humanize"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/jmylchreest/scrapemaster/internal/logger"
	"github.com/jmylchreest/scrapemaster/pkg/artifact"
	"github.com/jmylchreest/scrapemaster/pkg/extract"
	"github.com/jmylchreest/scrapemaster/pkg/fetcher"
)

// Page describes a page that was fetched and written.
type Page struct {
	Number        int
	URL           string
	Depth         int
	TextPath      string
	Texts         int
	Images        int // images saved
	ImageFailures int
	Links         int

	Document *goquery.Document // parsed markup of the page
}

// Stats summarizes a crawl.
type Stats struct {
	Visited       int // targets marked visited and fetched
	Pages         int // pages written
	Failed        int // fetch failures
	Skipped       int // targets already visited or beyond MaxDepth
	Images        int
	ImageFailures int
	Bytes         uint64 // image bytes saved
}

// Config holds crawler configuration.
type Config struct {
	MaxDepth       int `validate:"gte=0"` // 0 = root only
	TextSelectors  []string
	ImageSelectors []string
	OnPage         func(Page) // Called after each page is written
}

// DefaultConfig returns sensible crawler defaults.
func DefaultConfig() Config {
	return Config{MaxDepth: 2}
}

// Crawler walks a site one page at a time.
type Crawler struct {
	fetcher    fetcher.Fetcher
	downloader fetcher.Downloader
	store      *artifact.Store
	config     Config
}

// New creates a new Crawler.
func New(f fetcher.Fetcher, d fetcher.Downloader, store *artifact.Store, cfg Config) (*Crawler, error) {
	if f == nil || d == nil || store == nil {
		return nil, errors.New("crawler requires a fetcher, a downloader and a store")
	}
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid crawler config: %w", err)
	}
	return &Crawler{
		fetcher:    f,
		downloader: d,
		store:      store,
		config:     cfg,
	}, nil
}

// Crawl visits root and every page reachable from it within MaxDepth links,
// depth-first in document order. A page whose fetch fails is skipped along
// with the links it would have contributed. Crawl stops early only when ctx
// is done or a text file cannot be written.
func (c *Crawler) Crawl(ctx context.Context, root string) (Stats, error) {
	log := logger.With("run", uuid.NewString())
	log.Info("crawl started", "root", root, "max_depth", c.config.MaxDepth, "output", c.store.Dir())
	start := time.Now()

	var stats Stats
	frontier := NewFrontier()
	frontier.Push(Target{URL: root})

	for {
		if err := ctx.Err(); err != nil {
			log.Info("crawl cancelled", "visited", stats.Visited, "pending", frontier.Len())
			return stats, err
		}

		target, ok := frontier.Pop()
		if !ok {
			break
		}
		if target.Depth > c.config.MaxDepth || !frontier.Visit(target.URL) {
			stats.Skipped++
			continue
		}
		stats.Visited++

		log.Debug("crawler fetching", "url", target.URL, "depth", target.Depth)
		doc, err := c.fetcher.Fetch(ctx, target.URL)
		if err != nil {
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}
			stats.Failed++
			log.Warn("fetch failed", "url", target.URL, "depth", target.Depth, "error", err)
			continue
		}

		page, err := c.writePage(ctx, log, target, doc, &stats)
		if err != nil {
			return stats, err
		}

		if target.Depth < c.config.MaxDepth {
			links := extract.Links(doc, target.URL)
			frontier.PushLinks(links, target.Depth+1)
			page.Links = len(links)
			log.Debug("crawler queued links", "from", target.URL, "count", len(links))
		}

		if c.config.OnPage != nil {
			c.config.OnPage(page)
		}
	}

	log.Info("crawl complete",
		"pages", stats.Pages,
		"failed", stats.Failed,
		"images", stats.Images,
		"image_failures", stats.ImageFailures,
		"downloaded", humanize.Bytes(stats.Bytes),
		"duration", time.Since(start).Round(time.Millisecond))
	return stats, nil
}

// writePage saves the text file and images of one fetched page. Only a failed
// text write is returned; image failures are logged and counted.
func (c *Crawler) writePage(ctx context.Context, log *slog.Logger, target Target, doc *goquery.Document, stats *Stats) (Page, error) {
	texts := extract.Text(doc, c.config.TextSelectors)
	images := extract.Images(doc, target.URL, c.config.ImageSelectors)

	stats.Pages++
	page := Page{Number: stats.Pages, URL: target.URL, Depth: target.Depth, Texts: len(texts), Document: doc}

	path, err := c.store.WriteText(page.Number, texts)
	if err != nil {
		return page, fmt.Errorf("writing page %d for %s: %w", page.Number, target.URL, err)
	}
	page.TextPath = path
	log.Info("page written", "page", page.Number, "url", target.URL, "depth", target.Depth, "texts", len(texts), "images", len(images))

	for i, src := range images {
		if ctx.Err() != nil {
			break
		}
		data, err := c.downloader.Download(ctx, src)
		if err == nil {
			_, err = c.store.WritePageImage(page.Number, i, data)
		}
		if err != nil {
			page.ImageFailures++
			stats.ImageFailures++
			log.Warn("image download failed", "page", page.Number, "url", src, "error", err)
			continue
		}
		page.Images++
		stats.Images++
		stats.Bytes += uint64(len(data))
		log.Debug("image saved", "page", page.Number, "index", i, "size", humanize.Bytes(uint64(len(data))))
	}
	return page, nil
}
