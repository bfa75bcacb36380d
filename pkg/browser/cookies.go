package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// Cookie is the JSON form of a browser cookie in a snapshot file.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain,omitempty"`
	Path     string  `json:"path,omitempty"`
	Expiry   float64 `json:"expiry,omitempty"` // Unix seconds, 0 for session cookies
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"sameSite,omitempty"`
}

func fromNetwork(c *network.Cookie) Cookie {
	out := Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Domain:   c.Domain,
		Path:     c.Path,
		HTTPOnly: c.HTTPOnly,
		Secure:   c.Secure,
		SameSite: c.SameSite.String(),
	}
	if !c.Session && c.Expires > 0 {
		out.Expiry = math.Floor(c.Expires)
	}
	return out
}

func (c Cookie) param() *network.CookieParam {
	p := &network.CookieParam{
		Name:     c.Name,
		Value:    c.Value,
		Domain:   c.Domain,
		Path:     c.Path,
		HTTPOnly: c.HTTPOnly,
		Secure:   c.Secure,
	}
	if p.Path == "" {
		p.Path = "/"
	}
	if c.SameSite != "" {
		p.SameSite = network.CookieSameSite(c.SameSite)
	}
	if c.Expiry > 0 {
		exp := cdp.TimeSinceEpoch(time.Unix(int64(c.Expiry), 0))
		p.Expires = &exp
	}
	return p
}

// Cookies returns the cookies visible to the current page.
func (b *Browser) Cookies(ctx context.Context) ([]Cookie, error) {
	var out []Cookie
	err := b.run(ctx, b.config.NavigateTimeout, chromedp.ActionFunc(func(ctx context.Context) error {
		cookies, err := network.GetCookies().Do(ctx)
		if err != nil {
			return err
		}
		for _, c := range cookies {
			out = append(out, fromNetwork(c))
		}
		return nil
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to read browser cookies: %w", err)
	}
	return out, nil
}

// SetCookies installs cookies in the browser.
func (b *Browser) SetCookies(ctx context.Context, cookies []Cookie) error {
	if len(cookies) == 0 {
		return nil
	}
	params := make([]*network.CookieParam, 0, len(cookies))
	for _, c := range cookies {
		params = append(params, c.param())
	}
	err := b.run(ctx, b.config.NavigateTimeout, chromedp.ActionFunc(func(ctx context.Context) error {
		return network.SetCookies(params).Do(ctx)
	}))
	if err != nil {
		return fmt.Errorf("failed to set browser cookies: %w", err)
	}
	return nil
}

// SaveCookies writes the current page's cookies to path as a JSON array.
func (b *Browser) SaveCookies(ctx context.Context, path string) error {
	cookies, err := b.Cookies(ctx)
	if err != nil {
		return err
	}
	return WriteCookieFile(path, cookies)
}

// LoadCookies installs the cookies stored at path.
func (b *Browser) LoadCookies(ctx context.Context, path string) error {
	cookies, err := ReadCookieFile(path)
	if err != nil {
		return err
	}
	return b.SetCookies(ctx, cookies)
}

// WriteCookieFile writes cookies to path as a JSON array.
func WriteCookieFile(path string, cookies []Cookie) error {
	if cookies == nil {
		cookies = []Cookie{}
	}
	data, err := json.MarshalIndent(cookies, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode browser cookies: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write browser cookie file: %w", err)
	}
	return nil
}

// ReadCookieFile reads a JSON array of cookies from path.
func ReadCookieFile(path string) ([]Cookie, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- caller-specified snapshot path
	if err != nil {
		return nil, fmt.Errorf("failed to read browser cookie file: %w", err)
	}
	var cookies []Cookie
	if err := json.Unmarshal(data, &cookies); err != nil {
		return nil, fmt.Errorf("failed to decode browser cookie file: %w", err)
	}
	return cookies, nil
}
