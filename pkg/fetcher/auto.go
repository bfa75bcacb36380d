package fetcher

import (
	"context"
	"errors"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jmylchreest/scrapemaster/internal/logger"
)

// Auto fetches over Static first and falls back to Dynamic when the static
// page fails at the transport level or looks like it needs JavaScript.
type Auto struct {
	Static  Fetcher
	Dynamic Fetcher
}

// Fetch implements Fetcher.
func (a *Auto) Fetch(ctx context.Context, pageURL string) (*goquery.Document, error) {
	doc, err := a.Static.Fetch(ctx, pageURL)
	if err != nil {
		// A browser sees the same status code; only transport failures are
		// worth a second attempt.
		var fe *FetchError
		if ctx.Err() != nil || (errors.As(err, &fe) && fe.Kind == KindStatus) {
			return nil, err
		}
		logger.Debug("static fetch failed, rendering", "url", pageURL, "error", err)
		return a.Dynamic.Fetch(ctx, pageURL)
	}

	if NeedsJavaScript(doc) {
		logger.Debug("page needs javascript, rendering", "url", pageURL)
		return a.Dynamic.Fetch(ctx, pageURL)
	}
	return doc, nil
}

// spaRoots match empty mount points and markers left by client-side
// frameworks.
var spaRoots = []string{
	"#root:empty",      // React
	"#app:empty",       // Vue
	"app-root:empty",   // Angular
	"#__next:empty",    // Next.js
	"#__nuxt:empty",    // Nuxt.js
	"[data-reactroot]", // React
	"[ng-app]",         // Angular
	"[v-cloak]",        // Vue
}

var (
	loadingHints  = []string{"loading", "please wait", "javascript required", "enable javascript"}
	noscriptHints = []string{"javascript", "enable", "required", "browser"}
)

// NeedsJavaScript reports whether doc appears to be a client-rendered shell.
func NeedsJavaScript(doc *goquery.Document) bool {
	if doc == nil {
		return false
	}
	for _, sel := range spaRoots {
		if doc.Find(sel).Length() > 0 {
			return true
		}
	}

	body := doc.Find("body").Clone()
	body.Find("script, style, noscript").Remove()
	text := strings.ToLower(strings.TrimSpace(body.Text()))
	if len(text) < 100 && containsAny(text, loadingHints) {
		return true
	}

	noscript := strings.ToLower(doc.Find("noscript").Text())
	return containsAny(noscript, noscriptHints)
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
