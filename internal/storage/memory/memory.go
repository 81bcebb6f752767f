// Package memory provides an in-process persister for ephemeral sessions
// and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

type Store struct {
	mu      sync.Mutex
	book    core.Book
	saved   bool
	saves   int
	saveErr error
}

var _ storage.Persister = (*Store)(nil)

// New returns an empty store; Load reports storage.ErrNotFound until the
// first Save.
func New() *Store {
	return &Store{}
}

// NewWithBook returns a store that already holds book.
func NewWithBook(book core.Book) *Store {
	return &Store{book: book.Clone(), saved: true}
}

func (s *Store) Load(_ context.Context) (core.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.saved {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, s.Location())
	}
	return s.book.Clone(), nil
}

// Save keeps a deep copy of book.
func (s *Store) Save(_ context.Context, book core.Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.book = book.Clone()
	s.saved = true
	s.saves++
	return nil
}

// Saves returns how many times Save succeeded.
func (s *Store) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// FailSaves makes every following Save return err; nil restores saving.
func (s *Store) FailSaves(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveErr = err
}

func (s *Store) Location() string {
	return "memory"
}

func (s *Store) Close() error {
	return nil
}
