// Package commands implements the CLI commands for scrapemaster.
package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/scrapemaster/internal/logger"
	"github.com/jmylchreest/scrapemaster/internal/version"
	"github.com/jmylchreest/scrapemaster/pkg/browser"
	"github.com/jmylchreest/scrapemaster/pkg/scrapemaster"
)

var rootCmd = &cobra.Command{
	Use:   "scrapemaster",
	Short: "Scrape text and images from web pages and crawl sites",
	Long: `ScrapeMaster extracts text and image URLs from web pages, over plain
HTTP or through a headless Chrome for JavaScript-rendered pages, and crawls
sites depth-first writing one text file per page plus its images.

Examples:
  # Text and images from a single page
  scrapemaster scrape -u "https://example.com"

  # Render JavaScript first, keep only article paragraphs
  scrapemaster scrape -u "https://example.com/app" --js --text-selector "article p"

  # Crawl two links deep into ./output
  scrapemaster crawl -u "https://example.com" --max-depth 2

  # Log in once, then reuse the saved cookies
  scrapemaster login -u "https://example.com/login" --username ada --password secret
  scrapemaster scrape -u "https://example.com/account"`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		initLogger()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (default $HOME/.scrapemaster.yaml)")
	flags.Bool("debug", false, "enable debug logging")
	flags.BoolP("quiet", "q", false, "only log errors")
	flags.Bool("json-logs", false, "log as JSON")
	flags.String("proxy", "", "proxy URL for HTTP and browser traffic")
	flags.String("cookies", "cookies.gob", "HTTP cookie snapshot file")
	flags.String("browser-cookies", "browser_cookies.json", "browser cookie snapshot file")
	flags.Duration("timeout", 30*time.Second, "HTTP request timeout")
	flags.Bool("headful", false, "show the browser window instead of running headless")
	flags.String("chrome-path", "", "Chrome binary (found automatically when empty)")

	for _, name := range []string{"config", "debug", "quiet", "proxy", "cookies", "timeout", "headful"} {
		_ = viper.BindPFlag(name, flags.Lookup(name))
	}
	_ = viper.BindPFlag("json_logs", flags.Lookup("json-logs"))
	_ = viper.BindPFlag("browser_cookies", flags.Lookup("browser-cookies"))
	_ = viper.BindPFlag("chrome_path", flags.Lookup("chrome-path"))
}

func initConfig() {
	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigName(".scrapemaster")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("SCRAPEMASTER")
	viper.AutomaticEnv()

	// Read config file (ignore error if not found)
	_ = viper.ReadInConfig()
}

func initLogger() {
	logger.Init(logger.Options{
		Debug:  viper.GetBool("debug"),
		Quiet:  viper.GetBool("quiet"),
		JSON:   viper.GetBool("json_logs"),
		Pretty: isTerminal(os.Stderr),
	})
	if used := viper.ConfigFileUsed(); used != "" {
		logger.Debug("config loaded", "file", used)
	}
	logger.Debug("starting", "version", version.UserAgent())
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		logError("%v", err)
	}
	return err
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// newScrapeMaster builds a ScrapeMaster for rawURL from the global flags,
// loading any existing HTTP cookie snapshot.
func newScrapeMaster(rawURL string, extra ...scrapemaster.Option) (*scrapemaster.ScrapeMaster, error) {
	bcfg := browser.DefaultConfig()
	bcfg.Headless = !viper.GetBool("headful")
	bcfg.ExecPath = viper.GetString("chrome_path")

	opts := []scrapemaster.Option{
		scrapemaster.WithProxy(viper.GetString("proxy")),
		scrapemaster.WithTimeout(viper.GetDuration("timeout")),
		scrapemaster.WithCookieFile(viper.GetString("cookies")),
		scrapemaster.WithBrowserCookieFile(viper.GetString("browser_cookies")),
		scrapemaster.WithBrowserConfig(bcfg),
	}
	sm, err := scrapemaster.New(rawURL, append(opts, extra...)...)
	if err != nil {
		return nil, err
	}

	if cookies := viper.GetString("cookies"); fileExists(cookies) {
		if err := sm.LoadCookies(); err != nil {
			logger.Warn("ignoring cookie file", "file", cookies, "error", err)
		} else {
			logger.Debug("cookies loaded", "file", cookies)
		}
	}
	return sm, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// logError prints an error message to stderr.
func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}

// logInfo prints an info message to stderr (unless quiet mode).
func logInfo(format string, args ...any) {
	if !viper.GetBool("quiet") {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}
