// Package logger provides structured logging for scrapemaster.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"

	charmlog "github.com/charmbracelet/log"
)

var (
	defaultLogger *slog.Logger
	mu            sync.RWMutex

	// level is shared by the handlers built in Init so SetLevel can adjust
	// them after construction.
	level = new(slog.LevelVar)

	// charm is the pretty handler when one is installed; it keeps its own level.
	charm *charmlog.Logger
)

func init() {
	// Default to discarding debug logs
	defaultLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// Options configures the logger.
type Options struct {
	Debug  bool         // Enable debug level logging
	Quiet  bool         // Only show errors
	JSON   bool         // Output as JSON
	Pretty bool         // Colourised human output (ignored when JSON is set)
	Output io.Writer    // Output destination (default: stderr)
	Logger *slog.Logger // Custom logger (overrides all other options)
}

// Init initializes the logger with the specified options.
func Init(opts Options) {
	mu.Lock()
	defer mu.Unlock()

	// If a custom logger is provided, use it directly
	if opts.Logger != nil {
		defaultLogger = opts.Logger
		charm = nil
		return
	}

	lvl := slog.LevelInfo
	if opts.Debug {
		lvl = slog.LevelDebug
	}
	if opts.Quiet {
		lvl = slog.LevelError
	}
	level.Set(lvl)

	output := opts.Output
	if output == nil {
		output = os.Stderr
	}

	handlerOpts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	charm = nil
	switch {
	case opts.JSON:
		handler = slog.NewJSONHandler(output, handlerOpts)
	case opts.Pretty:
		// Interactive terminals get the charm handler with short timestamps
		charm = charmlog.NewWithOptions(output, charmlog.Options{
			Level:           charmLevel(lvl),
			ReportTimestamp: true,
			TimeFormat:      "15:04:05",
		})
		handler = charm
	default:
		handler = slog.NewTextHandler(output, handlerOpts)
	}

	defaultLogger = slog.New(handler)
}

// SetLevel changes the minimum level of the logger installed by Init and
// returns the previous level. It has no effect on a custom Logger.
func SetLevel(l slog.Level) slog.Level {
	mu.Lock()
	defer mu.Unlock()

	prev := level.Level()
	level.Set(l)
	if charm != nil {
		charm.SetLevel(charmLevel(l))
	}
	return prev
}

func charmLevel(l slog.Level) charmlog.Level {
	switch {
	case l <= slog.LevelDebug:
		return charmlog.DebugLevel
	case l >= slog.LevelError:
		return charmlog.ErrorLevel
	case l >= slog.LevelWarn:
		return charmlog.WarnLevel
	default:
		return charmlog.InfoLevel
	}
}

// SetLogger sets a custom slog.Logger to be used by scrapemaster.
// This allows integration with your application's existing logging system.
func SetLogger(l *slog.Logger) {
	mu.Lock()
	defer mu.Unlock()
	defaultLogger = l
	charm = nil
}

func current() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return defaultLogger
}

// Debug logs a debug message.
func Debug(msg string, args ...any) {
	current().Debug(msg, args...)
}

// Info logs an info message.
func Info(msg string, args ...any) {
	current().Info(msg, args...)
}

// Warn logs a warning message.
func Warn(msg string, args ...any) {
	current().Warn(msg, args...)
}

// Error logs an error message.
func Error(msg string, args ...any) {
	current().Error(msg, args...)
}

// With returns a logger with the given attributes.
func With(args ...any) *slog.Logger {
	return current().With(args...)
}

// DebugContext logs a debug message with context.
func DebugContext(ctx context.Context, msg string, args ...any) {
	current().DebugContext(ctx, msg, args...)
}

// InfoContext logs an info message with context.
func InfoContext(ctx context.Context, msg string, args ...any) {
	current().InfoContext(ctx, msg, args...)
}
