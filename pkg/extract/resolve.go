package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jmylchreest/scrapemaster/internal/logger"
)

// Resolve joins ref against base using RFC 3986 reference resolution.
// An absolute ref is returned unchanged apart from dot-segment removal.
// A '%' in ref that does not start a valid escape is kept as a literal
// percent sign ("/a%zz" becomes "/a%25zz").
func Resolve(base, ref string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	r, err := url.Parse(escapeStrayPercent(strings.TrimSpace(ref)))
	if err != nil {
		return "", err
	}
	return b.ResolveReference(r).String(), nil
}

// Images returns the absolute source URL of every element matched by
// selectors that carries a src attribute. Order follows the selectors, then
// document order; duplicates are kept.
func Images(doc *goquery.Document, base string, selectors []string) []string {
	if len(selectors) == 0 {
		selectors = DefaultImageSelectors
	}
	var urls []string
	for _, sel := range selectors {
		urls = append(urls, attrURLs(doc, base, sel, "src")...)
	}
	return urls
}

// Links returns the absolute target of every hyperlink carrying an href.
func Links(doc *goquery.Document, base string) []string {
	return attrURLs(doc, base, "a[href]", "href")
}

func attrURLs(doc *goquery.Document, base, selector, attr string) []string {
	if doc == nil {
		return nil
	}
	var urls []string
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		val, ok := s.Attr(attr)
		if !ok {
			return
		}
		abs, err := Resolve(base, val)
		if err != nil {
			logger.Debug("dropping unresolvable reference", "base", base, attr, val, "error", err)
			return
		}
		urls = append(urls, abs)
	})
	return urls
}

// escapeStrayPercent encodes every '%' not followed by two hex digits.
func escapeStrayPercent(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s) + 4)
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && (i+2 >= len(s) || !isHex(s[i+1]) || !isHex(s[i+2])) {
			sb.WriteString("%25")
			continue
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}

func isHex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}
