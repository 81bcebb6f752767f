package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

func newRepo(t *testing.T) *Repository {
	t.Helper()
	r, err := New(filepath.Join(t.TempDir(), "nested", "ledger.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func book(t *testing.T) core.Book {
	t.Helper()
	mk := func(amount string, typ core.TransactionType, date string) core.Transaction {
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
	return core.Book{
		{Category: "Salary", Transactions: []core.Transaction{mk("2000", core.Income, "2024-01-01")}},
		{Category: "Groceries", Transactions: []core.Transaction{
			mk("50", core.Expense, "2024-01-05"),
			mk("12.5", core.Expense, "2024-01-03"),
		}},
		{Category: "Emptied", Transactions: []core.Transaction{}},
	}
}

func TestLoadBeforeSaveIsNotFound(t *testing.T) {
	r := newRepo(t)
	if _, err := r.Load(context.Background()); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	want := book(t)
	if err := r.Save(ctx, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := r.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("got %d categories, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Category != want[i].Category {
			t.Fatalf("category %d = %q, want %q", i, got[i].Category, want[i].Category)
		}
		if len(got[i].Transactions) != len(want[i].Transactions) {
			t.Fatalf("%s: got %d transactions, want %d", want[i].Category, len(got[i].Transactions), len(want[i].Transactions))
		}
		for j := range want[i].Transactions {
			if !got[i].Transactions[j].SameValue(want[i].Transactions[j]) {
				t.Fatalf("%s #%d mismatch", want[i].Category, j)
			}
		}
	}
}

func TestSaveReplacesPreviousContents(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	if err := r.Save(ctx, book(t)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := r.Save(ctx, core.Book{}); err != nil {
		t.Fatalf("save empty: %v", err)
	}
	got, err := r.Load(ctx)
	if err != nil {
		t.Fatalf("an explicitly saved empty book must load, got %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty book, got %+v", got)
	}
}

func TestLoadMalformedRow(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	if err := r.Save(ctx, book(t)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := r.db.ExecContext(ctx, `UPDATE transactions SET type = 'Loan' WHERE category_position = 0`); err != nil {
		t.Fatalf("corrupt: %v", err)
	}
	if _, err := r.Load(ctx); !errors.Is(err, storage.ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	ctx := context.Background()
	r, err := New(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := r.Save(ctx, book(t)); err != nil {
		t.Fatalf("save: %v", err)
	}
	r.Close()

	r, err = New(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer r.Close()
	got, err := r.Load(ctx)
	if err != nil || got.Len() != 3 {
		t.Fatalf("expected 3 transactions after reopen, got %d err=%v", got.Len(), err)
	}
}
