package services

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/ledger"
	"fintrack/internal/log"
	"fintrack/internal/query"
	"fintrack/internal/storage/memory"
)

type fakeNotifier struct {
	mu       sync.Mutex
	messages []*amqp.LedgerChangeMessage
	err      error
	closed   bool
}

func (f *fakeNotifier) PublishLedgerChange(_ context.Context, msg *amqp.LedgerChangeMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, msg)
	return f.err
}

func (f *fakeNotifier) Close() error {
	f.closed = true
	return nil
}

func newService(t *testing.T) (*LedgerService, *memory.Store, *fakeNotifier) {
	t.Helper()
	p := memory.New()
	n := &fakeNotifier{}
	logger := log.New(log.Config{Output: io.Discard})
	return NewLedgerService(ledger.New(p), n, logger), p, n
}

func txn(t *testing.T, amount string, typ core.TransactionType, date string) core.Transaction {
	t.Helper()
	m, err := core.ParseAmount(amount)
	if err != nil {
		t.Fatalf("amount: %v", err)
	}
	d, err := core.ParseDate(date)
	if err != nil {
		t.Fatalf("date: %v", err)
	}
	return core.NewTransaction(m, typ, d)
}

func TestAddPersistsThenNotifies(t *testing.T) {
	s, p, n := newService(t)
	ctx := context.Background()

	loc, err := s.Add(ctx, "groceries", txn(t, "50", core.Expense, "2024-01-05"))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if loc.Category != "Groceries" || p.Saves() != 1 {
		t.Fatalf("unexpected add result %+v saves=%d", loc, p.Saves())
	}
	if len(n.messages) != 1 || n.messages[0].Operation != log.OpAdd || n.messages[0].Category != "Groceries" {
		t.Fatalf("unexpected notifications %+v", n.messages)
	}
}

func TestPublishFailureDoesNotFailMutation(t *testing.T) {
	s, p, n := newService(t)
	n.err = errors.New("broker down")
	if _, err := s.Add(context.Background(), "Rent", txn(t, "900", core.Expense, "2024-01-01")); err != nil {
		t.Fatalf("publish errors must not surface, got %v", err)
	}
	if p.Saves() != 1 {
		t.Fatalf("expected the save to stand")
	}
}

func TestFailedMutationDoesNotNotify(t *testing.T) {
	s, p, n := newService(t)
	p.FailSaves(errors.New("read-only"))
	if _, err := s.Add(context.Background(), "Rent", txn(t, "900", core.Expense, "2024-01-01")); err == nil {
		t.Fatalf("expected save error")
	}
	if len(n.messages) != 0 {
		t.Fatalf("no message may be published for a failed mutation")
	}
	if !s.IsEmpty() {
		t.Fatalf("failed add must be rolled back")
	}
}

func TestUpdateMovesAndReportsPreviousCategory(t *testing.T) {
	s, _, n := newService(t)
	ctx := context.Background()
	target := txn(t, "50", core.Expense, "2024-01-05")
	s.Add(ctx, "Food", target)

	amount, _ := core.ParseAmount("60")
	loc, err := s.Update(ctx, "food", txn(t, "50.00", core.Expense, "2024-01-05"), ledger.SetCategory("dining"), ledger.SetAmount(amount))
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if loc.Category != "Dining" {
		t.Fatalf("expected move to Dining, got %+v", loc)
	}
	last := n.messages[len(n.messages)-1]
	if last.Operation != log.OpUpdate || last.PreviousCategory != "Food" || last.Transactions[0].Amount != "60.00" {
		t.Fatalf("unexpected update message %+v", last)
	}
}

func TestUpdateAndDeleteLookupMiss(t *testing.T) {
	s, _, n := newService(t)
	ctx := context.Background()
	s.Add(ctx, "Food", txn(t, "50", core.Expense, "2024-01-05"))

	miss := txn(t, "51", core.Expense, "2024-01-05")
	if _, err := s.Update(ctx, "Food", miss, ledger.SetType(core.Income)); !errors.Is(err, ledger.ErrTransactionNotFound) {
		t.Fatalf("expected ErrTransactionNotFound, got %v", err)
	}
	if _, err := s.Delete(ctx, "Food", miss); !errors.Is(err, ledger.ErrTransactionNotFound) {
		t.Fatalf("expected ErrTransactionNotFound, got %v", err)
	}
	if len(n.messages) != 1 {
		t.Fatalf("lookup misses must not notify")
	}
}

func TestDeleteFirstDuplicate(t *testing.T) {
	s, _, _ := newService(t)
	ctx := context.Background()
	first := txn(t, "50", core.Expense, "2024-01-05")
	second := txn(t, "50", core.Expense, "2024-01-05")
	s.Add(ctx, "Food", first)
	s.Add(ctx, "Food", second)

	removed, err := s.Delete(ctx, "Food", txn(t, "50", core.Expense, "2024-01-05"))
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if removed.ID != first.ID {
		t.Fatalf("expected first duplicate removed")
	}
	if left := s.Book()[0].Transactions; len(left) != 1 || left[0].ID != second.ID {
		t.Fatalf("second duplicate must remain, got %+v", left)
	}
}

func TestSearch(t *testing.T) {
	s, _, _ := newService(t)
	ctx := context.Background()
	s.Add(ctx, "Groceries", txn(t, "50", core.Expense, "2024-01-05"))
	s.Add(ctx, "Salary", txn(t, "2000", core.Income, "2024-01-01"))
	s.Add(ctx, "Gifts", txn(t, "20", core.Expense, "2024-02-01"))

	rows, err := s.Search(core.FieldType, "expense", query.SortState{Field: core.FieldAmount})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(rows) != 2 || rows[0].Category != "Gifts" || rows[1].Category != "Groceries" {
		t.Fatalf("unexpected rows %+v", rows)
	}

	if _, err := s.Search(core.FieldCategory, "zzz", query.SortState{}); !errors.Is(err, ErrNoResults) {
		t.Fatalf("expected ErrNoResults, got %v", err)
	}

	all := s.Rows(query.SortState{Field: core.FieldDate, Descending: true})
	if len(all) != 3 || all[0].Category != "Gifts" || all[2].Category != "Salary" {
		t.Fatalf("unexpected rows %+v", all)
	}
}

func TestSummaryAndClose(t *testing.T) {
	s, _, n := newService(t)
	ctx := context.Background()
	s.Add(ctx, "Salary", txn(t, "100", core.Income, "2024-01-01"))
	s.Add(ctx, "Rent", txn(t, "150", core.Expense, "2024-01-02"))

	sum := s.Summary()
	if sum.UsableBalance.String() != "0.00" || sum.TotalExpense.String() != "150.00" {
		t.Fatalf("unexpected summary %+v", sum)
	}
	if err := s.Close(); err != nil || !n.closed {
		t.Fatalf("close: %v closed=%v", err, n.closed)
	}
}
