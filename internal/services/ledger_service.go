// Package services exposes the ledger commands used by every front end:
// add, list, update, delete, summarize and search.
package services

import (
	"context"
	"errors"
	"fmt"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/ledger"
	"fintrack/internal/log"
	"fintrack/internal/query"
)

// ErrNoResults is returned by Search when nothing matched. It is an ordinary
// outcome, distinct from lookup and storage failures.
var ErrNoResults = errors.New("no results were found to match the chosen search criteria")

// Notifier receives a message after every persisted mutation.
type Notifier interface {
	PublishLedgerChange(ctx context.Context, msg *amqp.LedgerChangeMessage) error
	Close() error
}

// LedgerService orchestrates ledger operations: persist first, then notify.
type LedgerService struct {
	store    *ledger.Store
	notifier Notifier
	logger   *log.Logger
}

// NewLedgerService wraps store. notifier may be nil.
func NewLedgerService(store *ledger.Store, notifier Notifier, logger *log.Logger) *LedgerService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &LedgerService{
		store:    store,
		notifier: notifier,
		logger:   logger.WithComponent(log.ComponentLedger),
	}
}

func (s *LedgerService) Store() *ledger.Store {
	return s.store
}

// Book returns a copy of every bucket in category order.
func (s *LedgerService) Book() core.Book {
	return s.store.Book()
}

func (s *LedgerService) IsEmpty() bool {
	return s.store.IsEmpty()
}

// Version changes whenever a mutation is committed.
func (s *LedgerService) Version() uint64 {
	return s.store.Version()
}

// Add files t under category and persists.
func (s *LedgerService) Add(ctx context.Context, category string, t core.Transaction) (ledger.Location, error) {
	loc, err := s.store.Add(ctx, category, t)
	if err != nil {
		s.logFailure(ctx, log.OpAdd, category, err)
		return ledger.Location{}, fmt.Errorf("add transaction: %w", err)
	}
	s.logger.InfoContext(ctx, "Transaction added",
		log.NewFields().WithOperation(log.OpAdd).
			WithTransaction(loc.Category, t.Amount.String(), t.Type.String(), t.Date.String()).ToSlice()...)
	s.notify(ctx, amqp.NewLedgerChangeMessage(log.OpAdd, loc.Category, t))
	return loc, nil
}

// Find resolves the first transaction of category equal by value to target.
func (s *LedgerService) Find(category string, target core.Transaction) (ledger.Location, error) {
	return s.store.FindExact(category, target)
}

// Update applies edits to the first transaction of category equal to target
// and persists once.
func (s *LedgerService) Update(ctx context.Context, category string, target core.Transaction, edits ...ledger.Edit) (ledger.Location, error) {
	loc, err := s.store.FindExact(category, target)
	if err != nil {
		return ledger.Location{}, err
	}
	return s.UpdateAt(ctx, loc, edits...)
}

// UpdateAt applies edits to the transaction at loc and persists once.
func (s *LedgerService) UpdateAt(ctx context.Context, loc ledger.Location, edits ...ledger.Edit) (ledger.Location, error) {
	next, err := s.store.Update(ctx, loc, edits...)
	if err != nil {
		s.logFailure(ctx, log.OpUpdate, loc.Category, err)
		return ledger.Location{}, fmt.Errorf("update transaction: %w", err)
	}
	t, _ := s.store.Get(next)
	s.logger.InfoContext(ctx, "Transaction updated",
		log.NewFields().WithOperation(log.OpUpdate).
			WithTransaction(next.Category, t.Amount.String(), t.Type.String(), t.Date.String()).ToSlice()...)

	msg := amqp.NewLedgerChangeMessage(log.OpUpdate, next.Category, t)
	if next.Category != loc.Category {
		msg.PreviousCategory = loc.Category
	}
	s.notify(ctx, msg)
	return next, nil
}

// Delete removes the first transaction of category equal to target.
func (s *LedgerService) Delete(ctx context.Context, category string, target core.Transaction) (core.Transaction, error) {
	loc, err := s.store.FindExact(category, target)
	if err != nil {
		return core.Transaction{}, err
	}
	removed, err := s.store.Delete(ctx, loc)
	if err != nil {
		s.logFailure(ctx, log.OpDelete, loc.Category, err)
		return core.Transaction{}, fmt.Errorf("delete transaction: %w", err)
	}
	s.logger.InfoContext(ctx, "Transaction deleted",
		log.NewFields().WithOperation(log.OpDelete).
			WithTransaction(loc.Category, removed.Amount.String(), removed.Type.String(), removed.Date.String()).ToSlice()...)
	s.notify(ctx, amqp.NewLedgerChangeMessage(log.OpDelete, loc.Category, removed))
	return removed, nil
}

func (s *LedgerService) Summary() core.Summary {
	return s.store.Summarize()
}

// Search filters by field and q, then orders the matching rows by sort.
// ErrNoResults is returned when nothing matched.
func (s *LedgerService) Search(field core.Field, q string, sort query.SortState) ([]core.Row, error) {
	filtered, ok := query.Filter(s.store.Book(), field, q)
	if !ok {
		return nil, ErrNoResults
	}
	return sort.Apply(query.Flatten(filtered)), nil
}

// Rows returns every transaction as a row, ordered by sort.
func (s *LedgerService) Rows(sort query.SortState) []core.Row {
	return sort.Apply(query.Flatten(s.store.Book()))
}

func (s *LedgerService) notify(ctx context.Context, msg *amqp.LedgerChangeMessage) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.PublishLedgerChange(ctx, msg); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish ledger change",
			log.FieldOperation, msg.Operation,
			log.FieldCategory, msg.Category,
			log.FieldError, err)
	}
}

func (s *LedgerService) logFailure(ctx context.Context, op, category string, err error) {
	var validation bool
	for _, target := range []error{core.ErrInvalidAmount, core.ErrInvalidDate, core.ErrInvalidType, core.ErrEmptyCategory, core.ErrUnknownField, ledger.ErrTransactionNotFound} {
		if errors.Is(err, target) {
			validation = true
			break
		}
	}
	fields := log.NewFields().WithOperation(op).WithError(err)
	fields[log.FieldCategory] = category
	fields[log.FieldBackend] = s.store.Persister().Location()
	if validation {
		s.logger.WarnContext(ctx, "Ledger operation rejected", fields.ToSlice()...)
		return
	}
	s.logger.ErrorContext(ctx, "Ledger operation failed", fields.ToSlice()...)
}

// Close closes the persister and the notifier.
func (s *LedgerService) Close() error {
	var errs []error
	if s.store != nil {
		if err := s.store.Persister().Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if s.notifier != nil {
		if err := s.notifier.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}
	return errors.Join(errs...)
}
