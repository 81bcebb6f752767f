// Package jsonfile persists the transaction store as a human-readable JSON
// file keyed by category.
package jsonfile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// File is a storage.Persister backed by a single JSON file.
type File struct {
	path string
}

var _ storage.Persister = (*File)(nil)

func New(path string) *File {
	return &File{path: path}
}

func (f *File) Location() string {
	return f.path
}

// Load reads and parses the whole file.
func (f *File) Load(ctx context.Context) (core.Book, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, f.path)
		}
		return nil, fmt.Errorf("read %s: %w", f.path, err)
	}
	book, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.path, err)
	}
	slog.DebugContext(ctx, "Loaded ledger file",
		"path", f.path,
		"categories", len(book),
		"transactions", book.Len())
	return book, nil
}

// Save rewrites the whole file. The content is written to a temporary file
// in the same directory and renamed over the destination, so a failed write
// leaves the previous file intact.
func (f *File) Save(ctx context.Context, book core.Book) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create ledger directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.path)+"-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := Encode(tmp, book); err != nil {
		tmp.Close()
		return fmt.Errorf("encode ledger: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("replace %s: %w", f.path, err)
	}

	slog.DebugContext(ctx, "Saved ledger file",
		"path", f.path,
		"categories", len(book),
		"transactions", book.Len())
	return nil
}

func (f *File) Close() error {
	return nil
}
