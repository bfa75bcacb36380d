// Package artifact writes crawl output to disk.
//
// Layout under the store directory:
//
//	{prefix}{n}.txt
//	images/page_{n}/image_{i}.jpg
//	images/image_{i}.jpg
//
// Image bytes are written as received; the .jpg extension is not a claim
// about the format.
package artifact

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// IOError reports a failed file or directory write.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// Store is an output directory for text and image artifacts.
type Store struct {
	dir    string
	prefix string
}

// New creates dir if needed and returns a store writing text files named
// {prefix}{n}.txt.
func New(dir, prefix string) (*Store, error) {
	if dir == "" {
		return nil, &IOError{Op: "mkdir", Path: dir, Err: errors.New("empty directory")}
	}
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, &IOError{Op: "mkdir", Path: dir, Err: err}
	}
	return &Store{dir: dir, prefix: prefix}, nil
}

// Dir returns the root output directory.
func (s *Store) Dir() string {
	return s.dir
}

// TextPath returns the path of the text file for page n.
func (s *Store) TextPath(n int) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s%d.txt", s.prefix, n))
}

// WriteText writes texts newline-joined to the text file for page n.
func (s *Store) WriteText(n int, texts []string) (string, error) {
	path := s.TextPath(n)
	return path, writeFile(path, []byte(strings.Join(texts, "\n")))
}

// PageImagePath returns the path of image i of page n.
func (s *Store) PageImagePath(page, index int) string {
	return filepath.Join(s.dir, "images", fmt.Sprintf("page_%d", page), fmt.Sprintf("image_%d.jpg", index))
}

// WritePageImage stores image i of page n.
func (s *Store) WritePageImage(page, index int, data []byte) (string, error) {
	path := s.PageImagePath(page, index)
	return path, writeFile(path, data)
}

// ImagePath returns the path of a standalone image download.
func (s *Store) ImagePath(index int) string {
	return filepath.Join(s.dir, "images", fmt.Sprintf("image_%d.jpg", index))
}

// WriteImage stores a standalone image download.
func (s *Store) WriteImage(index int, data []byte) (string, error) {
	path := s.ImagePath(index)
	return path, writeFile(path, data)
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return &IOError{Op: "mkdir", Path: filepath.Dir(path), Err: err}
	}
	if err := os.WriteFile(path, data, filePerm); err != nil {
		return &IOError{Op: "write", Path: path, Err: err}
	}
	return nil
}
