// Package fetcher obtains markup and raw bytes for URLs.
//
// Session is the plain HTTP strategy; the headless-browser strategy lives in
// package browser and satisfies the same Fetcher interface.
package fetcher

import (
	"bytes"
	"context"
	"net/url"

	"github.com/PuerkitoBio/goquery"
)

// Fetcher retrieves a URL and returns its parsed markup.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*goquery.Document, error)
}

// Downloader retrieves the raw body of a URL.
type Downloader interface {
	Download(ctx context.Context, url string) ([]byte, error)
}

// Parse turns a response body into a document whose Url is set to pageURL.
func Parse(pageURL string, body []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &ParseError{URL: pageURL, Err: err}
	}
	if u, err := url.Parse(pageURL); err == nil {
		doc.Url = u
	}
	return doc, nil
}
