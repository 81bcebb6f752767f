// Package storage defines the persistence port of the transaction store.
//
// Every implementation has full-rewrite semantics: Save replaces the whole
// persisted book with the given one, and Load returns exactly what the last
// Save wrote, category order and bucket order included.
package storage

import (
	"context"
	"errors"

	"fintrack/internal/core"
)

var (
	// ErrNotFound is returned by Load when nothing has been persisted yet.
	ErrNotFound = errors.New("transaction records not found")

	// ErrMalformed is returned by Load when persisted data exists but cannot
	// be parsed into a book. Implementations wrap it with the parse detail.
	ErrMalformed = errors.New("malformed transaction records")
)

// Persister loads and saves a whole book.
type Persister interface {
	Load(ctx context.Context) (core.Book, error)
	Save(ctx context.Context, book core.Book) error
	// Location describes where the book lives, for logs and messages.
	Location() string
	Close() error
}
