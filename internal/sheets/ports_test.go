package sheets

import (
	"testing"

	"fintrack/internal/core"
)

func TestValuesOrder(t *testing.T) {
	a, _ := core.ParseAmount("1")
	b, _ := core.ParseAmount("2")
	d, _ := core.NewDate(2024, 1, 1)
	book := core.Book{
		{Category: "Zeta", Transactions: []core.Transaction{core.NewTransaction(a, core.Income, d)}},
		{Category: "Alpha", Transactions: []core.Transaction{core.NewTransaction(b, core.Expense, d)}},
	}
	got := Values(book)
	if len(got) != 3 || got[1][0] != "Zeta" || got[2][1] != "2.00" {
		t.Fatalf("unexpected values %v", got)
	}
	got[0][0] = "mutated"
	if Header[0] != "Transaction" {
		t.Fatalf("Values must not alias Header")
	}
}
