package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// File fetches rows from a local CSV file.
type File struct {
	path string
}

// NewFile creates a file fetcher for the CSV at path.
func NewFile(path string) (*File, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("source: resolve path: %w", err)
	}
	return &File{path: abs}, nil
}

// Path returns the absolute path of the backing file.
func (f *File) Path() string {
	return f.path
}

// FetchRows reads and parses the whole file. The context only bounds the
// call for interface symmetry; local reads are not interruptible.
func (f *File) FetchRows(ctx context.Context) ([]map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	file, err := os.Open(f.path)
	if err != nil {
		return nil, fmt.Errorf("source: open %s: %w", f.path, err)
	}
	defer file.Close()
	return parseCSV(file)
}

// Describe implements knowledge.Fetcher.
func (f *File) Describe() string {
	return "file:" + f.path
}
