package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/jmylchreest/scrapemaster/internal/logger"
	"github.com/jmylchreest/scrapemaster/pkg/fetcher"
)

// Login describes an interactive login form.
type Login struct {
	URL              string `validate:"required,http_url"`
	Username         string
	Password         string
	UsernameSelector string `validate:"required"`
	PasswordSelector string `validate:"required"`
	SubmitSelector   string `validate:"required"`
}

// Login fills in and submits the form described by l, then waits up to
// ReadyTimeout for the page URL to move away from the login URL.
func (b *Browser) Login(ctx context.Context, l Login) error {
	logger.Debug("browser login", "url", l.URL)

	if err := b.run(ctx, b.config.NavigateTimeout, chromedp.Navigate(l.URL)); err != nil {
		return &fetcher.AuthError{URL: l.URL, Err: fmt.Errorf("navigate: %w", err)}
	}
	if err := b.run(ctx, b.config.ReadyTimeout, chromedp.WaitReady(l.UsernameSelector, chromedp.ByQuery)); err != nil {
		return &fetcher.AuthError{URL: l.URL, Err: fmt.Errorf("username field %q not found: %w", l.UsernameSelector, err)}
	}

	err := b.run(ctx, b.config.NavigateTimeout,
		chromedp.SendKeys(l.UsernameSelector, l.Username, chromedp.ByQuery),
		chromedp.SendKeys(l.PasswordSelector, l.Password, chromedp.ByQuery),
		chromedp.Click(l.SubmitSelector, chromedp.ByQuery),
	)
	if err != nil {
		return &fetcher.AuthError{URL: l.URL, Err: fmt.Errorf("submit: %w", err)}
	}

	if err := b.run(ctx, b.config.ReadyTimeout, waitURLChange(l.URL)); err != nil {
		return &fetcher.AuthError{URL: l.URL, Err: fmt.Errorf("page did not leave login URL: %w", err)}
	}

	logger.Debug("browser login complete", "url", l.URL)
	return nil
}

// waitURLChange polls the tab location until it differs from from.
func waitURLChange(from string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			var loc string
			if err := chromedp.Location(&loc).Do(ctx); err != nil {
				return err
			}
			if loc != from {
				return nil
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		}
	})
}
