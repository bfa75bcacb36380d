package artifact

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestNew_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "output")
	s, err := New(dir, "page_")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Fatalf("expected directory %s to exist", dir)
	}
	if s.Dir() != dir {
		t.Errorf("Dir() = %q, want %q", s.Dir(), dir)
	}
}

func TestNew_Errors(t *testing.T) {
	if _, err := New("", "page_"); err == nil {
		t.Error("expected error for empty directory")
	}

	// A regular file where the directory should be.
	file := filepath.Join(t.TempDir(), "occupied")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := New(file, "page_")
	var ioErr *IOError
	if !errors.As(err, &ioErr) {
		t.Fatalf("expected *IOError, got %T: %v", err, err)
	}
	if ioErr.Path != file {
		t.Errorf("expected path %q, got %q", file, ioErr.Path)
	}
}

func TestStore_WriteText(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, "page_")
	if err != nil {
		t.Fatal(err)
	}

	path, err := s.WriteText(3, []string{"Title", "First paragraph", "Second"})
	if err != nil {
		t.Fatalf("WriteText() error = %v", err)
	}
	if want := filepath.Join(dir, "page_3.txt"); path != want {
		t.Errorf("path = %q, want %q", path, want)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := string(data); got != "Title\nFirst paragraph\nSecond" {
		t.Errorf("unexpected content %q", got)
	}
}

func TestStore_WriteText_Empty(t *testing.T) {
	s, err := New(t.TempDir(), "doc-")
	if err != nil {
		t.Fatal(err)
	}
	path, err := s.WriteText(1, nil)
	if err != nil {
		t.Fatalf("WriteText() error = %v", err)
	}
	if filepath.Base(path) != "doc-1.txt" {
		t.Errorf("unexpected file name %q", filepath.Base(path))
	}
	if info, err := os.Stat(path); err != nil || info.Size() != 0 {
		t.Errorf("expected empty file, err=%v", err)
	}
}

func TestStore_WritePageImage(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, "page_")
	if err != nil {
		t.Fatal(err)
	}

	path, err := s.WritePageImage(2, 1, []byte{0x89, 'P', 'N', 'G'})
	if err != nil {
		t.Fatalf("WritePageImage() error = %v", err)
	}
	want := filepath.Join(dir, "images", "page_2", "image_1.jpg")
	if path != want {
		t.Errorf("path = %q, want %q", path, want)
	}
	data, err := os.ReadFile(want)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "\x89PNG" {
		t.Errorf("bytes not written verbatim: %q", data)
	}
}

func TestStore_WriteImage(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, "")
	if err != nil {
		t.Fatal(err)
	}
	path, err := s.WriteImage(4, []byte("img"))
	if err != nil {
		t.Fatalf("WriteImage() error = %v", err)
	}
	if want := filepath.Join(dir, "images", "image_4.jpg"); path != want {
		t.Errorf("path = %q, want %q", path, want)
	}
}

func TestStore_WriteFailsWhenImagesIsFile(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, "page_")
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "images"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err = s.WritePageImage(1, 1, []byte("img"))
	var ioErr *IOError
	if !errors.As(err, &ioErr) {
		t.Fatalf("expected *IOError, got %T: %v", err, err)
	}
	if ioErr.Op != "mkdir" {
		t.Errorf("expected mkdir op, got %q", ioErr.Op)
	}
}

func TestIOError_Message(t *testing.T) {
	err := &IOError{Op: "write", Path: "/out/page_1.txt", Err: os.ErrPermission}
	if got, want := err.Error(), "write /out/page_1.txt: permission denied"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, os.ErrPermission) {
		t.Error("IOError should unwrap to its cause")
	}
}
