// Package query filters and orders transactions without touching the store.
package query

import (
	"cmp"
	"slices"
	"strings"

	"fintrack/internal/core"
)

// Filter returns the buckets of book reduced to the transactions matching q
// on field. Buckets left empty are dropped. ok is false when nothing matched,
// which is an ordinary outcome and not an error.
//
// Matching rules per field:
//   - category: the capitalized query is a substring of the label
//   - amount: the query, read as a number exact in cents, equals the amount
//   - type: the capitalized query is a substring of the capitalized type
//   - date: the query is a substring of the YYYY-MM-DD date
func Filter(book core.Book, field core.Field, q string) (core.Book, bool) {
	match, err := matcher(field, q)
	if err != nil {
		return nil, false
	}

	var out core.Book
	for _, bucket := range book {
		var kept []core.Transaction
		for _, t := range bucket.Transactions {
			if match(bucket.Category, t) {
				kept = append(kept, t)
			}
		}
		if len(kept) > 0 {
			out = append(out, core.Bucket{Category: bucket.Category, Transactions: kept})
		}
	}
	return out, len(out) > 0
}

type matchFunc func(category string, t core.Transaction) bool

func matcher(field core.Field, q string) (matchFunc, error) {
	q = strings.TrimSpace(q)
	switch field {
	case core.FieldCategory:
		needle := core.Capitalize(q)
		return func(category string, _ core.Transaction) bool {
			return strings.Contains(category, needle)
		}, nil
	case core.FieldAmount:
		want, err := core.ParseLookupAmount(q)
		if err != nil {
			return func(string, core.Transaction) bool { return false }, nil
		}
		return func(_ string, t core.Transaction) bool {
			return t.Amount.String() == want.String()
		}, nil
	case core.FieldType:
		needle := core.Capitalize(q)
		return func(_ string, t core.Transaction) bool {
			return strings.Contains(core.Capitalize(t.Type.String()), needle)
		}, nil
	case core.FieldDate:
		return func(_ string, t core.Transaction) bool {
			return strings.Contains(t.Date.String(), q)
		}, nil
	}
	return nil, core.ErrUnknownField
}

// Flatten returns one row per transaction in category then bucket order.
func Flatten(book core.Book) []core.Row {
	return book.Rows()
}

// Sort returns a new slice of rows ordered by field. Amounts compare
// numerically, other fields as text. Rows with equal keys keep their
// relative order in both directions.
func Sort(rows []core.Row, field core.Field, descending bool) []core.Row {
	out := slices.Clone(rows)
	compare := comparator(field)
	if compare == nil {
		return out
	}
	slices.SortStableFunc(out, func(a, b core.Row) int {
		if descending {
			return compare(b, a)
		}
		return compare(a, b)
	})
	return out
}

func comparator(field core.Field) func(a, b core.Row) int {
	switch field {
	case core.FieldCategory:
		return func(a, b core.Row) int { return cmp.Compare(a.Category, b.Category) }
	case core.FieldAmount:
		return func(a, b core.Row) int { return a.Amount.Cmp(b.Amount) }
	case core.FieldType:
		return func(a, b core.Row) int { return cmp.Compare(a.Type, b.Type) }
	case core.FieldDate:
		return func(a, b core.Row) int { return cmp.Compare(a.Date.String(), b.Date.String()) }
	}
	return nil
}

// SortState is the column sort selection of one table view session. The
// zero value means unsorted.
type SortState struct {
	Field      core.Field
	Descending bool
}

// Toggle returns the state after a sort request on field: the same column
// flips direction, another column starts ascending.
func (s SortState) Toggle(field core.Field) SortState {
	if s.Field == field {
		return SortState{Field: field, Descending: !s.Descending}
	}
	return SortState{Field: field}
}

// Next is the direction a request on field would produce, used to render
// header links.
func (s SortState) Next(field core.Field) bool {
	return s.Toggle(field).Descending
}

// Apply sorts rows by the state, or returns them unchanged when unsorted.
func (s SortState) Apply(rows []core.Row) []core.Row {
	if s.Field == "" {
		return slices.Clone(rows)
	}
	return Sort(rows, s.Field, s.Descending)
}
