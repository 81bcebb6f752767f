// Package sheets defines the outbound port for spreadsheet exports.
package sheets

import (
	"context"

	"fintrack/internal/core"
)

// Header is the first row of every exported table.
var Header = []string{"Transaction", "Amount", "Type", "Date"}

// BookWriter replaces a remote table with the contents of book and reports
// how many transaction rows were written.
type BookWriter interface {
	WriteBook(ctx context.Context, book core.Book) (int, error)
}

// Values flattens book into the header row followed by one row per
// transaction, in category then bucket order.
func Values(book core.Book) [][]string {
	out := make([][]string, 0, book.Len()+1)
	out = append(out, append([]string(nil), Header...))
	for _, r := range book.Rows() {
		out = append(out, []string{r.Category, r.Amount.String(), r.Type.String(), r.Date.String()})
	}
	return out
}
