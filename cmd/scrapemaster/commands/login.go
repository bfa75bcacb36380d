package commands

import (
	"errors"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/scrapemaster/pkg/scrapemaster"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and save the session cookies",
	Long: `Log in to a site and save the resulting cookies so later scrape and
crawl commands are authenticated.

Without --browser the credentials are POSTed as a form and the HTTP cookies
are saved to --cookies. With --browser the login form is filled in and
submitted in a headless Chrome and the browser cookies are saved to
--browser-cookies.

Examples:
  scrapemaster login -u "https://example.com/login" --username ada --password secret
  scrapemaster login -u "https://example.com/login" --username ada --password secret \
      --browser --username-selector "#email" --password-selector "#pass" --submit-selector "button[type=submit]"`,
	RunE: runLogin,
}

func init() {
	rootCmd.AddCommand(loginCmd)

	flags := loginCmd.Flags()
	flags.StringP("url", "u", "", "login URL (required)")
	flags.String("username", "", "username")
	flags.String("password", "", "password (or SCRAPEMASTER_PASSWORD)")
	flags.String("username-field", "username", "form field name for the username")
	flags.String("password-field", "password", "form field name for the password")
	flags.Bool("browser", false, "log in through the headless browser")
	flags.String("username-selector", "", "CSS selector of the username input (--browser)")
	flags.String("password-selector", "", "CSS selector of the password input (--browser)")
	flags.String("submit-selector", "", "CSS selector of the submit button (--browser)")

	_ = loginCmd.MarkFlagRequired("url")
	_ = viper.BindPFlag("password", flags.Lookup("password"))
}

func runLogin(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	loginURL, _ := flags.GetString("url")
	username, _ := flags.GetString("username")
	password := viper.GetString("password")
	useBrowser, _ := flags.GetBool("browser")

	ctx, cancel := signalContext()
	defer cancel()

	sm, err := newScrapeMaster(loginURL)
	if err != nil {
		return err
	}
	defer func() { _ = sm.Close() }()

	if !useBrowser {
		usernameField, _ := flags.GetString("username-field")
		passwordField, _ := flags.GetString("password-field")
		if err := sm.Login(ctx, scrapemaster.LoginForm{
			URL:           loginURL,
			Username:      username,
			Password:      password,
			UsernameField: usernameField,
			PasswordField: passwordField,
		}); err != nil {
			return err
		}
		logInfo("logged in, cookies saved to %s", viper.GetString("cookies"))
		return nil
	}

	l := scrapemaster.BrowserLogin{URL: loginURL, Username: username, Password: password}
	l.UsernameSelector, _ = flags.GetString("username-selector")
	l.PasswordSelector, _ = flags.GetString("password-selector")
	l.SubmitSelector, _ = flags.GetString("submit-selector")
	if l.UsernameSelector == "" || l.PasswordSelector == "" || l.SubmitSelector == "" {
		return errors.New("--browser requires --username-selector, --password-selector and --submit-selector")
	}
	if err := sm.LoginWithBrowser(ctx, l); err != nil {
		return err
	}
	logInfo("logged in, browser cookies saved to %s", viper.GetString("browser_cookies"))
	return nil
}
