package output

import (
	"bufio"
	"encoding/json"
	"io"
)

// jsonWriter collects results and writes a single value, or an array when
// more than one result was written.
type jsonWriter struct {
	w       *bufio.Writer
	compact bool
	items   []any
}

func newJSONWriter(w io.Writer, compact bool) *jsonWriter {
	return &jsonWriter{w: bufio.NewWriter(w), compact: compact}
}

func (w *jsonWriter) Write(v any) error {
	w.items = append(w.items, v)
	return nil
}

func (w *jsonWriter) Close() error {
	var v any = w.items
	switch len(w.items) {
	case 0:
		v = []any{}
	case 1:
		v = w.items[0]
	}

	enc := json.NewEncoder(w.w)
	enc.SetEscapeHTML(false)
	if !w.compact {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return err
	}
	return w.w.Flush()
}

// jsonlWriter writes one JSON object per line as results arrive.
type jsonlWriter struct {
	w   *bufio.Writer
	enc *json.Encoder
}

func newJSONLWriter(w io.Writer) *jsonlWriter {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	return &jsonlWriter{w: bw, enc: enc}
}

func (w *jsonlWriter) Write(v any) error {
	if err := w.enc.Encode(v); err != nil {
		return err
	}
	return w.w.Flush()
}

func (w *jsonlWriter) Close() error {
	return w.w.Flush()
}
