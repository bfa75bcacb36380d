package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"time"

	"github.com/briandowns/spinner"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/scrapemaster/internal/logger"
	"github.com/jmylchreest/scrapemaster/pkg/crawler"
	"github.com/jmylchreest/scrapemaster/pkg/extract"
	"github.com/jmylchreest/scrapemaster/pkg/scrapemaster"
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Crawl a site depth-first, saving text and images per page",
	Long: `Crawl every page reachable from the start URL within --max-depth links.

Each page's text is written to {output-dir}/{prefix}{n}.txt and its images
to {output-dir}/images/page_{n}/image_{i}.jpg, where n counts written pages
from 1. Pages that fail to load are skipped together with their links.

Examples:
  scrapemaster crawl -u "https://example.com"
  scrapemaster crawl -u "https://example.com/docs" --max-depth 3 --output-dir docs --prefix doc_`,
	RunE: runCrawl,
}

func init() {
	rootCmd.AddCommand(crawlCmd)

	flags := crawlCmd.Flags()
	flags.StringP("url", "u", "", "start URL (required)")
	flags.Int("max-depth", crawler.DefaultConfig().MaxDepth, "max link depth (0=start page only)")
	flags.String("output-dir", "output", "directory for text files and images")
	flags.String("prefix", "page_", "text file name prefix")
	flags.StringSliceP("text-selector", "t", nil, "CSS selector for text (can be repeated)")
	flags.StringSliceP("image-selector", "i", nil, "CSS selector for images (can be repeated)")
	flags.Int("retries", 0, "retry temporary HTTP failures this many times")
	flags.String("max-image-size", "0", "skip images larger than this (e.g. 5MB, 0=unlimited)")

	_ = crawlCmd.MarkFlagRequired("url")
}

func runCrawl(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	startURL, _ := flags.GetString("url")
	maxDepth, _ := flags.GetInt("max-depth")
	outputDir, _ := flags.GetString("output-dir")
	prefix, _ := flags.GetString("prefix")
	textSelectors, _ := flags.GetStringSlice("text-selector")
	imageSelectors, _ := flags.GetStringSlice("image-selector")
	retries, _ := flags.GetInt("retries")
	maxImageSizeStr, _ := flags.GetString("max-image-size")

	if err := extract.ValidateSelectors(slices.Concat(textSelectors, imageSelectors)); err != nil {
		return err
	}
	maxImageSize, err := parseSize(maxImageSizeStr)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	sm, err := newScrapeMaster(startURL,
		scrapemaster.WithRetries(retries),
		scrapemaster.WithMaxImageSize(maxImageSize))
	if err != nil {
		return err
	}
	defer func() { _ = sm.Close() }()

	opts := scrapemaster.CrawlOptions{
		MaxDepth:       maxDepth,
		OutputDir:      outputDir,
		Prefix:         prefix,
		TextSelectors:  textSelectors,
		ImageSelectors: imageSelectors,
	}

	var progress *crawlProgress
	if isTerminal(os.Stderr) && !viper.GetBool("quiet") && !viper.GetBool("json_logs") && !viper.GetBool("debug") {
		progress = startCrawlProgress(os.Stderr, startURL)
		opts.OnPage = progress.OnPage
	}

	start := time.Now()
	stats, err := sm.ScrapeWebsite(ctx, opts)
	if progress != nil {
		progress.Stop()
	}

	logInfo("crawled %d pages (%d failed, %d skipped), %d images (%d failed, %s) in %s",
		stats.Pages, stats.Failed, stats.Skipped,
		stats.Images, stats.ImageFailures, humanize.Bytes(stats.Bytes),
		time.Since(start).Round(time.Millisecond))
	return err
}

// crawlProgress shows the page being crawled on a spinner. Info logging is
// raised to warn while it runs so per-page lines do not tear through it.
type crawlProgress struct {
	spin      *spinner.Spinner
	prevLevel slog.Level
}

func startCrawlProgress(w io.Writer, startURL string) *crawlProgress {
	spin := spinner.New(spinner.CharSets[9], 100*time.Millisecond, spinner.WithWriter(w))
	spin.Suffix = " crawling " + startURL
	p := &crawlProgress{spin: spin, prevLevel: logger.SetLevel(slog.LevelWarn)}
	spin.Start()
	return p
}

// OnPage updates the spinner text. The spinner goroutine reads Suffix under
// the same lock.
func (p *crawlProgress) OnPage(page crawler.Page) {
	p.spin.Lock()
	defer p.spin.Unlock()
	p.spin.Suffix = fmt.Sprintf(" page %d (depth %d) %s", page.Number, page.Depth, page.URL)
}

func (p *crawlProgress) suffix() string {
	p.spin.Lock()
	defer p.spin.Unlock()
	return p.spin.Suffix
}

// Stop halts the spinner and restores the previous log level.
func (p *crawlProgress) Stop() {
	p.spin.Stop()
	logger.SetLevel(p.prevLevel)
}
