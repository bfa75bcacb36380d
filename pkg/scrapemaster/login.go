package scrapemaster

import (
	"context"
	"fmt"

	"github.com/jmylchreest/scrapemaster/internal/logger"
	"github.com/jmylchreest/scrapemaster/pkg/browser"
	"github.com/jmylchreest/scrapemaster/pkg/fetcher"
)

// LoginForm describes a form-encoded login POST.
type LoginForm struct {
	URL           string `validate:"required,http_url"`
	Username      string
	Password      string
	UsernameField string // Defaults to "username"
	PasswordField string // Defaults to "password"
}

// BrowserLogin describes an interactive login performed in the browser.
type BrowserLogin = browser.Login

// Login posts credentials over the HTTP session and, on a 2xx response,
// saves the session cookies to the configured cookie file.
func (s *ScrapeMaster) Login(ctx context.Context, form LoginForm) error {
	if form.UsernameField == "" {
		form.UsernameField = "username"
	}
	if form.PasswordField == "" {
		form.PasswordField = "password"
	}
	if err := s.validate.Struct(form); err != nil {
		return &fetcher.AuthError{URL: form.URL, Err: err}
	}

	logger.Debug("login", "url", form.URL, "username_field", form.UsernameField)
	_, err := s.session.PostForm(ctx, form.URL, map[string]string{
		form.UsernameField: form.Username,
		form.PasswordField: form.Password,
	})
	if err != nil {
		return &fetcher.AuthError{URL: form.URL, Err: err}
	}

	if err := s.SaveCookies(); err != nil {
		return err
	}
	logger.Info("logged in", "url", form.URL, "cookies", s.config.CookieFile)
	return nil
}

// LoginWithBrowser performs an interactive login in the headless browser and
// saves the browser cookies to the configured browser cookie file.
func (s *ScrapeMaster) LoginWithBrowser(ctx context.Context, l BrowserLogin) error {
	if err := s.validate.Struct(l); err != nil {
		return &fetcher.AuthError{URL: l.URL, Err: err}
	}
	if err := s.browser.Login(ctx, l); err != nil {
		return err
	}
	if err := s.SaveBrowserCookies(ctx); err != nil {
		return err
	}
	logger.Info("logged in with browser", "url", l.URL, "cookies", s.config.BrowserCookieFile)
	return nil
}

// SaveCookies writes the HTTP session cookies to the configured cookie file.
func (s *ScrapeMaster) SaveCookies() error {
	if err := s.session.SaveCookies(s.config.CookieFile); err != nil {
		return fmt.Errorf("saving cookies to %s: %w", s.config.CookieFile, err)
	}
	return nil
}

// LoadCookies merges the configured cookie file into the HTTP session.
func (s *ScrapeMaster) LoadCookies() error {
	if err := s.session.LoadCookies(s.config.CookieFile); err != nil {
		return fmt.Errorf("loading cookies from %s: %w", s.config.CookieFile, err)
	}
	return nil
}

// SaveBrowserCookies writes the browser cookies to the configured browser
// cookie file.
func (s *ScrapeMaster) SaveBrowserCookies(ctx context.Context) error {
	if err := s.browser.SaveCookies(ctx, s.config.BrowserCookieFile); err != nil {
		return fmt.Errorf("saving browser cookies to %s: %w", s.config.BrowserCookieFile, err)
	}
	return nil
}

// LoadBrowserCookies installs the configured browser cookie file into the
// browser.
func (s *ScrapeMaster) LoadBrowserCookies(ctx context.Context) error {
	if err := s.browser.LoadCookies(ctx, s.config.BrowserCookieFile); err != nil {
		return fmt.Errorf("loading browser cookies from %s: %w", s.config.BrowserCookieFile, err)
	}
	return nil
}
