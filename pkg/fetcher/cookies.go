package fetcher

import (
	"encoding/gob"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"sort"
)

// StoredCookie is one entry of a cookie snapshot. A cookie jar only exposes
// name and value per URL, so snapshots are keyed by the origin they were
// collected from and restored as host cookies for that origin.
type StoredCookie struct {
	URL   string
	Name  string
	Value string
}

// Cookies returns the cookies the session would send to rawURL.
func (s *Session) Cookies(rawURL string) []*http.Cookie {
	return s.collector.Cookies(rawURL)
}

// SetCookies stores cookies for rawURL in the session jar.
func (s *Session) SetCookies(rawURL string, cookies []*http.Cookie) error {
	if err := s.collector.SetCookies(rawURL, cookies); err != nil {
		return err
	}
	s.remember(rawURL)
	return nil
}

// Snapshot returns every cookie held for the origins this session has
// contacted, ordered by origin.
func (s *Session) Snapshot() []StoredCookie {
	origins := make([]string, 0, len(s.origins))
	for o := range s.origins {
		origins = append(origins, o)
	}
	sort.Strings(origins)

	var out []StoredCookie
	for _, o := range origins {
		u, err := url.Parse(o + "/")
		if err != nil {
			continue
		}
		for _, c := range s.jar.Cookies(u) {
			out = append(out, StoredCookie{URL: o, Name: c.Name, Value: c.Value})
		}
	}
	return out
}

// Restore loads a snapshot into the session jar.
func (s *Session) Restore(cookies []StoredCookie) error {
	byOrigin := make(map[string][]*http.Cookie)
	for _, c := range cookies {
		byOrigin[c.URL] = append(byOrigin[c.URL], &http.Cookie{Name: c.Name, Value: c.Value, Path: "/"})
	}
	for origin, list := range byOrigin {
		u, err := url.Parse(origin + "/")
		if err != nil {
			return fmt.Errorf("invalid cookie origin %q: %w", origin, err)
		}
		s.jar.SetCookies(u, list)
		s.remember(origin)
	}
	return nil
}

// SaveCookies writes a gob-encoded snapshot of the cookie jar to path.
func (s *Session) SaveCookies(path string) error {
	f, err := os.Create(path) //#nosec G304 -- caller-specified snapshot path
	if err != nil {
		return fmt.Errorf("failed to create cookie file: %w", err)
	}
	encErr := gob.NewEncoder(f).Encode(s.Snapshot())
	closeErr := f.Close()
	if err := errors.Join(encErr, closeErr); err != nil {
		return fmt.Errorf("failed to write cookie file: %w", err)
	}
	return nil
}

// LoadCookies merges the snapshot at path into the cookie jar.
func (s *Session) LoadCookies(path string) error {
	f, err := os.Open(path) //#nosec G304 -- caller-specified snapshot path
	if err != nil {
		return fmt.Errorf("failed to open cookie file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var cookies []StoredCookie
	if err := gob.NewDecoder(f).Decode(&cookies); err != nil {
		return fmt.Errorf("failed to decode cookie file: %w", err)
	}
	return s.Restore(cookies)
}
