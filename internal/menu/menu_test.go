package menu

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
	"fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/storage/memory"
)

func script(lines ...string) io.Reader {
	return strings.NewReader(strings.Join(lines, "\n") + "\n")
}

func run(t *testing.T, p *memory.Store, lines ...string) string {
	t.Helper()
	logger := log.New(log.Config{Output: io.Discard})
	store, err := ledger.Load(context.Background(), p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	var out bytes.Buffer
	m := New(services.NewLedgerService(store, nil, logger), script(lines...), &out, logger)
	if err := m.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	return out.String()
}

func seeded(t *testing.T) *memory.Store {
	t.Helper()
	amount, _ := core.ParseAmount("50")
	date, _ := core.ParseDate("2024-01-05")
	salary, _ := core.ParseAmount("2000")
	payday, _ := core.ParseDate("2024-01-01")
	return memory.NewWithBook(core.Book{
		{Category: "Groceries", Transactions: []core.Transaction{core.NewTransaction(amount, core.Expense, date)}},
		{Category: "Salary", Transactions: []core.Transaction{core.NewTransaction(salary, core.Income, payday)}},
	})
}

func loadBook(t *testing.T, p *memory.Store) core.Book {
	t.Helper()
	book, err := p.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return book
}

func mustContain(t *testing.T, out string, wants ...string) {
	t.Helper()
	for _, want := range wants {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestAddRepromptsInvalidValues(t *testing.T) {
	p := memory.New()
	out := run(t, p,
		"1",
		"abc", "-3", "12,5",
		"  ", "coffee",
		"XX", "dr",
		"x", "31", "2", "2024",
		"29", "2", "2024",
		"7",
	)
	mustContain(t, out,
		"Invalid input. Please enter a positive numerical value.",
		"Invalid purpose. Please enter a non-empty purpose.",
		"Invalid Transaction type entered. Please type CR or DR",
		"Invalid input. Please enter an integer value.",
		"Invalid date. Please enter the correct date!",
		"The transaction has been successfully added.",
		"Exiting Finance Tracker.",
	)
	book := loadBook(t, p)
	if len(book) != 1 || book[0].Category != "Coffee" {
		t.Fatalf("unexpected book %+v", book)
	}
	got := book[0].Transactions[0]
	if got.Amount.String() != "12.50" || got.Type != core.Expense || got.Date.String() != "2024-02-29" {
		t.Fatalf("unexpected transaction %+v", got)
	}
}

func TestViewAll(t *testing.T) {
	out := run(t, memory.New(), "2", "7")
	mustContain(t, out, "There are no financial records.")

	out = run(t, seeded(t), "2", "7")
	mustContain(t, out,
		"Transaction amount : 50.00\nTransaction purpose : Groceries\nTransaction type : Expense\nTransaction date : 2024-01-05",
		"Transaction purpose : Salary",
	)
}

func TestInvalidChoiceAndEOF(t *testing.T) {
	out := run(t, memory.New(), "9")
	mustContain(t, out, "Invalid choice. Please try again.")
}

func TestUpdateRetriesThenAppliesBatch(t *testing.T) {
	p := seeded(t)
	out := run(t, p,
		"3",
		"51", "groceries", "DR", "5", "1", "2024",
		"maybe", "Y",
		"50", "groceries", "DR", "5", "1", "2024",
		"colour", "amount", "55",
		"Y",
		"purpose", "food",
		"N",
		"7",
	)
	mustContain(t, out,
		"This transaction could not be found.",
		"Invalid letter entered. Please type Y or N",
		"Invalid field. Please try again.",
		"All changes to the transaction have been made.",
	)
	if p.Saves() != 1 {
		t.Fatalf("a batch of edits must persist once, got %d saves", p.Saves())
	}
	book := loadBook(t, p)
	if len(book) != 3 || len(book[0].Transactions) != 0 || book[2].Category != "Food" {
		t.Fatalf("unexpected book %+v", book)
	}
	if got := book[2].Transactions[0]; got.Amount.String() != "55.00" {
		t.Fatalf("amount edit lost: %+v", got)
	}
}

func TestUpdateGiveUp(t *testing.T) {
	p := seeded(t)
	out := run(t, p, "3", "1", "nothing", "CR", "1", "1", "2024", "N", "7")
	mustContain(t, out, "This transaction could not be found.")
	if p.Saves() != 0 {
		t.Fatalf("nothing must be saved")
	}
}

func TestUpdateAndDeleteOnEmptyStore(t *testing.T) {
	out := run(t, memory.New(), "3", "4", "7")
	mustContain(t, out,
		"No transactions to be updated are available.",
		"No transactions to be deleted are available.",
	)
}

func TestDelete(t *testing.T) {
	p := seeded(t)
	out := run(t, p, "4", "2000", "salary", "cr", "1", "1", "2024", "7")
	mustContain(t, out, "The transaction has been successfully removed.")
	book := loadBook(t, p)
	if len(book) != 2 || len(book[1].Transactions) != 0 {
		t.Fatalf("unexpected book %+v", book)
	}
}

func TestDeleteZeroAmountRecord(t *testing.T) {
	zero, _ := core.ParseStoredAmount("0.00")
	refund, _ := core.ParseStoredAmount("-5.00")
	date, _ := core.ParseDate("2024-01-01")
	p := memory.NewWithBook(core.Book{
		{Category: "Refund", Transactions: []core.Transaction{
			core.NewTransaction(zero, core.Income, date),
			core.NewTransaction(refund, core.Expense, date),
		}},
	})
	out := run(t, p,
		"4", "0.004", "0", "refund", "CR", "1", "1", "2024",
		"4", "-5", "refund", "DR", "1", "1", "2024",
		"7",
	)
	mustContain(t, out, "Invalid input. Please enter a numerical value.", "The transaction has been successfully removed.")
	book := loadBook(t, p)
	if len(book) != 1 || len(book[0].Transactions) != 0 {
		t.Fatalf("unexpected book %+v", book)
	}
}

func TestSummary(t *testing.T) {
	out := run(t, seeded(t), "5", "7")
	mustContain(t, out,
		"Groceries :",
		"1. Transaction amount : 50.00",
		"Total Expenses are : 50.00 \nTotal Income is : 2000.00 \nUsable Balance : 1950.00",
	)
}

func TestSearchAndSort(t *testing.T) {
	out := run(t, seeded(t),
		"6", "transaction", "zzz",
		"6", "date", "2024-01", "Y", "amount", "Y",
		"7",
	)
	mustContain(t, out, "No results were found to match the chosen search criteria.", "Transaction  Amount")
	last := out[strings.LastIndex(out, "Transaction  Amount"):]
	if strings.Index(last, "2000.00") > strings.Index(last, "50.00") {
		t.Fatalf("descending amount sort expected:\n%s", last)
	}
}

func TestSaveFailureIsReported(t *testing.T) {
	p := memory.New()
	p.FailSaves(errors.New("disk full"))
	out := run(t, p, "1", "10", "rent", "DR", "1", "1", "2024", "7")
	mustContain(t, out, "The change could not be saved", "disk full")
}
