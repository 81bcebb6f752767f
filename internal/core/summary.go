package core

// CategoryAmount is the per-type total of one category.
type CategoryAmount struct {
	Name    string
	Income  Money
	Expense Money
}

// Summary aggregates every transaction of a book.
type Summary struct {
	TotalIncome   Money
	TotalExpense  Money
	UsableBalance Money
	ByCategory    []CategoryAmount
}

// Summarize sums amounts by type. The usable balance is income minus
// expenses clamped at zero; a deficit is never reported as negative.
func Summarize(book Book) Summary {
	var s Summary
	for _, bucket := range book {
		ca := CategoryAmount{Name: bucket.Category}
		for _, t := range bucket.Transactions {
			if t.Type == Expense {
				ca.Expense = ca.Expense.Add(t.Amount)
			} else {
				ca.Income = ca.Income.Add(t.Amount)
			}
		}
		s.TotalIncome = s.TotalIncome.Add(ca.Income)
		s.TotalExpense = s.TotalExpense.Add(ca.Expense)
		s.ByCategory = append(s.ByCategory, ca)
	}
	s.UsableBalance = s.TotalIncome.Sub(s.TotalExpense)
	if s.UsableBalance.IsNegative() {
		s.UsableBalance = Money{}
	}
	return s
}
