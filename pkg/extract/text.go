// Package extract pulls text fragments, image sources and hyperlinks out of
// parsed markup.
package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// DefaultTextSelectors are applied, in order, when the caller supplies none.
var DefaultTextSelectors = []string{"h1", "h2", "h3", "p", "pre", "code"}

// DefaultImageSelectors are applied when the caller supplies none.
var DefaultImageSelectors = []string{"img"}

// Normalize collapses every run of whitespace to a single space and trims
// both ends.
func Normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Text returns the normalized text of every element matched by selectors.
// Selectors are applied in order and matches are visited in document order.
// Preformatted blocks contribute one fragment per descendant span rather than
// their full text.
func Text(doc *goquery.Document, selectors []string) []string {
	if doc == nil {
		return nil
	}
	if len(selectors) == 0 {
		selectors = DefaultTextSelectors
	}

	var texts []string
	for _, sel := range selectors {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			if goquery.NodeName(s) == "pre" {
				s.Find("span").Each(func(_ int, span *goquery.Selection) {
					texts = append(texts, Normalize(span.Text()))
				})
				return
			}
			texts = append(texts, Normalize(s.Text()))
		})
	}
	return texts
}

// ValidateSelectors reports the first selector that is not valid CSS.
func ValidateSelectors(selectors []string) error {
	for _, sel := range selectors {
		if _, err := cascadia.ParseGroup(sel); err != nil {
			return fmt.Errorf("invalid selector %q: %w", sel, err)
		}
	}
	return nil
}
