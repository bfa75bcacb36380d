package output

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

type page struct {
	URL       string   `json:"url" yaml:"url"`
	Texts     []string `json:"texts" yaml:"texts"`
	ImageURLs []string `json:"image_urls" yaml:"image_urls"`
}

var (
	home = page{URL: "https://example.com/", Texts: []string{"Welcome", "a < b & c"}, ImageURLs: []string{"https://example.com/logo.png"}}
	docs = page{URL: "https://example.com/docs", Texts: []string{"Docs"}, ImageURLs: []string{}}
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"json", FormatJSON, false},
		{"JSONL", FormatJSONL, false},
		{" yaml ", FormatYAML, false},
		{"yml", FormatYAML, false},
		{"csv", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNew_UnsupportedFormat(t *testing.T) {
	if _, err := New(&bytes.Buffer{}, Format("xml"), false); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestJSON_SingleResultIsObject(t *testing.T) {
	buf := &bytes.Buffer{}
	w, err := New(buf, FormatJSON, false)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Write(home); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if buf.Len() != 0 {
		t.Error("JSON output should be buffered until Close")
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	var got page
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON %q: %v", buf.String(), err)
	}
	if got.URL != home.URL || len(got.Texts) != 2 {
		t.Errorf("unexpected decoded page %+v", got)
	}
	if !strings.Contains(buf.String(), "a < b & c") {
		t.Errorf("HTML characters should not be escaped: %s", buf.String())
	}
	if !strings.Contains(buf.String(), "\n  \"url\"") {
		t.Errorf("expected indented output, got %s", buf.String())
	}
}

func TestJSON_MultipleResultsIsArray(t *testing.T) {
	buf := &bytes.Buffer{}
	w, _ := New(buf, FormatJSON, true)
	_ = w.Write(home)
	_ = w.Write(docs)
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	var got []page
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON array %q: %v", buf.String(), err)
	}
	if len(got) != 2 || got[1].URL != docs.URL {
		t.Errorf("unexpected pages %+v", got)
	}
	if strings.Count(strings.TrimSpace(buf.String()), "\n") != 0 {
		t.Error("compact output should be a single line")
	}
}

func TestJSON_NoResults(t *testing.T) {
	buf := &bytes.Buffer{}
	w, _ := New(buf, FormatJSON, true)
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(buf.String()); got != "[]" {
		t.Errorf("expected empty array, got %q", got)
	}
}

func TestJSONL_StreamsLines(t *testing.T) {
	buf := &bytes.Buffer{}
	w, _ := New(buf, FormatJSONL, false)

	if err := w.Write(home); err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(buf.String(), "\n") {
		t.Error("JSONL lines should be flushed as they are written")
	}
	_ = w.Write(docs)
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), buf.String())
	}
	var second page
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatal(err)
	}
	if second.URL != docs.URL {
		t.Errorf("unexpected second line %+v", second)
	}
}

func TestYAML_Documents(t *testing.T) {
	buf := &bytes.Buffer{}
	w, _ := New(buf, FormatYAML, false)
	_ = w.Write(home)
	_ = w.Write(docs)
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	dec := yaml.NewDecoder(buf)
	var got []page
	for {
		var p page
		if err := dec.Decode(&p); err != nil {
			break
		}
		got = append(got, p)
	}
	if len(got) != 2 || got[0].ImageURLs[0] != "https://example.com/logo.png" {
		t.Errorf("unexpected YAML documents %+v", got)
	}
}

func TestOpen(t *testing.T) {
	w, closeFn, err := Open("-")
	if err != nil || w != os.Stdout {
		t.Fatalf("expected stdout, got %v %v", w, err)
	}
	if err := closeFn(); err != nil {
		t.Errorf("closing stdout destination: %v", err)
	}

	path := filepath.Join(t.TempDir(), "out.json")
	w, closeFn, err = Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	out, _ := New(w, FormatJSON, true)
	_ = out.Write(docs)
	if err := out.Close(); err != nil {
		t.Fatal(err)
	}
	if err := closeFn(); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), docs.URL) {
		t.Errorf("unexpected file content %q", data)
	}

	if _, _, err := Open(filepath.Join(t.TempDir(), "missing", "out.json")); err == nil {
		t.Error("expected error for missing parent directory")
	}
}
