// Package output serializes scrape results for the CLI.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Format is an output serialization.
type Format string

const (
	FormatJSON  Format = "json"
	FormatJSONL Format = "jsonl"
	FormatYAML  Format = "yaml"
)

// Formats lists the supported formats.
var Formats = []Format{FormatJSON, FormatJSONL, FormatYAML}

// ParseFormat converts a flag value to a Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatJSONL, FormatYAML:
		return f, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (use json, jsonl or yaml)", s)
	}
}

// Writer serializes results. Nothing is guaranteed to reach the underlying
// writer until Close.
type Writer interface {
	Write(v any) error
	Close() error
}

// New returns a writer for format. JSON output is indented unless compact
// is set.
func New(w io.Writer, format Format, compact bool) (Writer, error) {
	switch format {
	case FormatJSON:
		return newJSONWriter(w, compact), nil
	case FormatJSONL:
		return newJSONLWriter(w), nil
	case FormatYAML:
		return newYAMLWriter(w), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// Open returns the destination for path: stdout for "" or "-", otherwise a
// newly created file. The returned close function never closes stdout.
func Open(path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path) //#nosec G304 -- user-specified output path
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, f.Close, nil
}
