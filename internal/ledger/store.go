// Package ledger holds the authoritative in-memory transaction store and
// mediates every read and write of its persisted form.
//
// Transactions are grouped into category buckets. Category order is first
// insertion order, bucket order is insertion order. Every mutation rewrites
// the whole persisted book before returning; if that write fails the
// in-memory change is rolled back, so memory and storage never disagree
// while the store is idle.
//
// A Store is meant for one session at a time and is not safe for
// concurrent mutation.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// ErrTransactionNotFound is returned when a by-value lookup or a location
// does not resolve to a stored transaction.
var ErrTransactionNotFound = errors.New("transaction not found")

// Location addresses one transaction: its bucket and position in it.
type Location struct {
	Category string
	Index    int
}

// Store holds the category buckets in memory and rewrites the whole book
// through its persister after every mutation. It is not safe for concurrent
// mutation.
type Store struct {
	persister storage.Persister
	order     []string
	buckets   map[string][]core.Transaction
	version   uint64
}

// New returns an empty store that persists through p.
func New(p storage.Persister) *Store {
	return &Store{
		persister: p,
		buckets:   make(map[string][]core.Transaction),
	}
}

// Load reads the persisted book. Missing records yield an empty store and no
// error. Malformed records yield an error and no store.
func Load(ctx context.Context, p storage.Persister) (*Store, error) {
	s, err := LoadExisting(ctx, p)
	if errors.Is(err, storage.ErrNotFound) {
		return New(p), nil
	}
	return s, err
}

// LoadExisting is Load for flows that require existing records: a missing
// book is reported as storage.ErrNotFound.
func LoadExisting(ctx context.Context, p storage.Persister) (*Store, error) {
	book, err := p.Load(ctx)
	if err != nil {
		return nil, err
	}
	s := New(p)
	for _, bucket := range book {
		if _, ok := s.buckets[bucket.Category]; !ok {
			s.order = append(s.order, bucket.Category)
		}
		for _, t := range bucket.Transactions {
			if t.ID == uuid.Nil {
				t.ID = uuid.New()
			}
			s.buckets[bucket.Category] = append(s.buckets[bucket.Category], t)
		}
		if s.buckets[bucket.Category] == nil {
			s.buckets[bucket.Category] = []core.Transaction{}
		}
	}
	return s, nil
}

// Persister returns the backing persister.
func (s *Store) Persister() storage.Persister {
	return s.persister
}

// Save rewrites the persisted book from the current in-memory state.
func (s *Store) Save(ctx context.Context) error {
	if err := s.persister.Save(ctx, s.Book()); err != nil {
		return fmt.Errorf("persist ledger to %s: %w", s.persister.Location(), err)
	}
	return nil
}

// Book returns a deep copy of the store contents in category order.
func (s *Store) Book() core.Book {
	book := make(core.Book, 0, len(s.order))
	for _, c := range s.order {
		book = append(book, core.Bucket{
			Category:     c,
			Transactions: append([]core.Transaction{}, s.buckets[c]...),
		})
	}
	return book
}

// Categories returns the category labels in insertion order.
func (s *Store) Categories() []string {
	return append([]string(nil), s.order...)
}

// Bucket returns a copy of the transactions filed under category.
func (s *Store) Bucket(category string) []core.Transaction {
	return append([]core.Transaction(nil), s.buckets[category]...)
}

// Len returns the number of stored transactions.
func (s *Store) Len() int {
	n := 0
	for _, txns := range s.buckets {
		n += len(txns)
	}
	return n
}

// IsEmpty reports whether the store holds no transaction.
func (s *Store) IsEmpty() bool {
	return s.Len() == 0
}

// Version increases by one after every committed mutation.
func (s *Store) Version() uint64 {
	return s.version
}

// Get returns the transaction at loc.
func (s *Store) Get(loc Location) (core.Transaction, error) {
	txns, ok := s.buckets[loc.Category]
	if !ok || loc.Index < 0 || loc.Index >= len(txns) {
		return core.Transaction{}, fmt.Errorf("%w: %s #%d", ErrTransactionNotFound, loc.Category, loc.Index)
	}
	return txns[loc.Index], nil
}

// Add appends t to the bucket of category, creating the bucket if needed,
// and persists.
func (s *Store) Add(ctx context.Context, category string, t core.Transaction) (Location, error) {
	category, err := core.NormalizeCategory(category)
	if err != nil {
		return Location{}, err
	}
	if err := t.Validate(); err != nil {
		return Location{}, err
	}
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}

	var loc Location
	err = s.commit(ctx, func() error {
		loc = s.appendTo(category, t)
		return nil
	})
	return loc, err
}

// FindExact resolves the first transaction in the bucket of category whose
// amount, type and date equal t's. Records that are equal by value cannot be
// told apart: the earliest in bucket order always wins.
func (s *Store) FindExact(category string, t core.Transaction) (Location, error) {
	category, err := core.NormalizeCategory(category)
	if err != nil {
		return Location{}, err
	}
	for i, candidate := range s.buckets[category] {
		if candidate.SameValue(t) {
			return Location{Category: category, Index: i}, nil
		}
	}
	return Location{}, fmt.Errorf("%w: %s %s %s %s", ErrTransactionNotFound, category, t.Amount, t.Type, t.Date)
}

// Update applies edits in order to the transaction at loc and persists once.
// A category edit moves the transaction to the end of the target bucket.
// The returned location is where the transaction ends up.
func (s *Store) Update(ctx context.Context, loc Location, edits ...Edit) (Location, error) {
	if _, err := s.Get(loc); err != nil {
		return Location{}, err
	}
	err := s.commit(ctx, func() error {
		for _, e := range edits {
			next, err := s.apply(loc, e)
			if err != nil {
				return err
			}
			loc = next
		}
		return nil
	})
	if err != nil {
		return Location{}, err
	}
	return loc, nil
}

// UpdateField parses value for field and applies it as a single edit.
func (s *Store) UpdateField(ctx context.Context, loc Location, field core.Field, value string) (Location, error) {
	e, err := ParseEdit(field, value)
	if err != nil {
		return Location{}, err
	}
	return s.Update(ctx, loc, e)
}

// Delete removes the transaction at loc and persists. The bucket is kept
// even when it becomes empty.
func (s *Store) Delete(ctx context.Context, loc Location) (core.Transaction, error) {
	removed, err := s.Get(loc)
	if err != nil {
		return core.Transaction{}, err
	}
	err = s.commit(ctx, func() error {
		s.removeAt(loc)
		return nil
	})
	if err != nil {
		return core.Transaction{}, err
	}
	return removed, nil
}

// Summarize totals the store by transaction type.
func (s *Store) Summarize() core.Summary {
	return core.Summarize(s.Book())
}

// commit runs mutate and persists the result. On any failure the store is
// restored to its state before the call.
func (s *Store) commit(ctx context.Context, mutate func() error) error {
	prevOrder := append([]string(nil), s.order...)
	prevBuckets := make(map[string][]core.Transaction, len(s.buckets))
	for c, txns := range s.buckets {
		prevBuckets[c] = append([]core.Transaction{}, txns...)
	}
	rollback := func() {
		s.order = prevOrder
		s.buckets = prevBuckets
	}

	if err := mutate(); err != nil {
		rollback()
		return err
	}
	if err := s.Save(ctx); err != nil {
		rollback()
		return err
	}
	s.version++
	return nil
}

func (s *Store) appendTo(category string, t core.Transaction) Location {
	if _, ok := s.buckets[category]; !ok {
		s.order = append(s.order, category)
	}
	s.buckets[category] = append(s.buckets[category], t)
	return Location{Category: category, Index: len(s.buckets[category]) - 1}
}

func (s *Store) removeAt(loc Location) core.Transaction {
	txns := s.buckets[loc.Category]
	t := txns[loc.Index]
	s.buckets[loc.Category] = append(txns[:loc.Index:loc.Index], txns[loc.Index+1:]...)
	return t
}
