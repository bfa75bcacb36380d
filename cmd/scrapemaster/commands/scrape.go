package commands

import (
	"fmt"
	"slices"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/scrapemaster/internal/output"
	"github.com/jmylchreest/scrapemaster/pkg/extract"
	"github.com/jmylchreest/scrapemaster/pkg/scrapemaster"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Extract text and image URLs from pages",
	Long: `Fetch one or more pages and print the text fragments and absolute
image URLs found on each.

Text defaults to h1, h2, h3, p, pre and code elements; images default to
every img element with a src attribute.

Examples:
  scrapemaster scrape -u "https://example.com"
  scrapemaster scrape -u "https://example.com/a" -u "https://example.com/b" --format jsonl
  scrapemaster scrape -u "https://example.com" --download ./images -o result.yaml --format yaml`,
	RunE: runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)

	flags := scrapeCmd.Flags()
	flags.StringSliceP("url", "u", nil, "URL(s) to scrape (can be repeated)")
	flags.StringSliceP("text-selector", "t", nil, "CSS selector for text (can be repeated)")
	flags.StringSliceP("image-selector", "i", nil, "CSS selector for images (can be repeated)")
	flags.Bool("js", false, "render JavaScript in a headless browser before scraping")
	flags.Bool("auto-js", false, "render JavaScript only for pages that appear to need it")
	flags.Bool("load-browser-cookies", false, "load the browser cookie snapshot before rendering")
	flags.StringP("download", "d", "", "download images into this directory")
	flags.String("max-image-size", "0", "skip images larger than this (e.g. 5MB, 0=unlimited)")
	flags.Int("retries", 0, "retry temporary HTTP failures this many times")
	flags.StringP("output", "o", "", "output file (default: stdout)")
	flags.String("format", "json", "output format: json, jsonl, yaml")
	flags.Bool("compact", false, "single-line JSON output")

	_ = scrapeCmd.MarkFlagRequired("url")
}

func runScrape(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	urls, _ := flags.GetStringSlice("url")
	textSelectors, _ := flags.GetStringSlice("text-selector")
	imageSelectors, _ := flags.GetStringSlice("image-selector")
	renderJS, _ := flags.GetBool("js")
	autoJS, _ := flags.GetBool("auto-js")
	loadBrowserCookies, _ := flags.GetBool("load-browser-cookies")
	downloadDir, _ := flags.GetString("download")
	maxImageSizeStr, _ := flags.GetString("max-image-size")
	retries, _ := flags.GetInt("retries")
	outputFile, _ := flags.GetString("output")
	formatStr, _ := flags.GetString("format")
	compact, _ := flags.GetBool("compact")

	// Validate everything before any network I/O
	if err := extract.ValidateSelectors(slices.Concat(textSelectors, imageSelectors)); err != nil {
		return err
	}
	format, err := output.ParseFormat(formatStr)
	if err != nil {
		return err
	}
	maxImageSize, err := parseSize(maxImageSizeStr)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	sm, err := newScrapeMaster(urls[0],
		scrapemaster.WithRetries(retries),
		scrapemaster.WithMaxImageSize(maxImageSize))
	if err != nil {
		return err
	}
	defer func() { _ = sm.Close() }()

	if renderJS && loadBrowserCookies {
		if err := sm.LoadBrowserCookies(ctx); err != nil {
			return err
		}
	}

	dest, closeDest, err := output.Open(outputFile)
	if err != nil {
		return err
	}
	defer func() { _ = closeDest() }()

	w, err := output.New(dest, format, compact)
	if err != nil {
		return err
	}

	for _, u := range urls {
		if ctx.Err() != nil {
			break
		}
		sm.SetURL(u)
		result := sm.ScrapeAll(ctx, scrapemaster.ScrapeOptions{
			TextSelectors:  textSelectors,
			ImageSelectors: imageSelectors,
			OutputDir:      downloadDir,
			RenderJS:       renderJS,
			AutoRender:     autoJS,
		})
		logInfo("%s: %d texts, %d images", u, len(result.Texts), len(result.ImageURLs))
		if err := w.Write(result); err != nil {
			return fmt.Errorf("failed to write result: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return ctx.Err()
}

// parseSize accepts human sizes such as "512KB" or "5MiB"; "0" or "" mean
// unlimited.
func parseSize(s string) (int64, error) {
	if s == "" || s == "0" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	return int64(n), nil //#nosec G115 -- sizes fit in int64
}
