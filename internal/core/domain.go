package core

import (
	"errors"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	Income  TransactionType = "Income"
	Expense TransactionType = "Expense"
)

// DateLayout is the on-disk and display form of a transaction date.
const DateLayout = "2006-01-02"

type (
	TransactionType string

	Date struct {
		time.Time
	}

	// Transaction is one record of money moved. ID is assigned in memory only
	// and never persisted; lookups for update and delete compare by value.
	Transaction struct {
		ID     uuid.UUID
		Amount Money
		Type   TransactionType
		Date   Date
	}

	// Bucket is the ordered list of transactions filed under one category.
	Bucket struct {
		Category     string
		Transactions []Transaction
	}

	// Book is the category-ordered content of a transaction store.
	Book []Bucket

	// Row is one flattened transaction tagged with its category, the unit
	// rendered by table views and ordered by the query engine.
	Row struct {
		ID       uuid.UUID
		Category string
		Amount   Money
		Type     TransactionType
		Date     Date
	}
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidType   = errors.New("invalid transaction type")
	ErrEmptyCategory = errors.New("empty category")
)

// NewTransaction builds a transaction with a fresh internal ID.
func NewTransaction(amount Money, typ TransactionType, date Date) Transaction {
	return Transaction{
		ID:     uuid.New(),
		Amount: amount,
		Type:   typ,
		Date:   date,
	}
}

// SameValue reports whether two transactions have equal amount, type and date.
func (t Transaction) SameValue(o Transaction) bool {
	return t.Amount.String() == o.Amount.String() &&
		t.Type == o.Type &&
		t.Date.String() == o.Date.String()
}

func (t Transaction) Validate() error {
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if !t.Type.IsValid() {
		return ErrInvalidType
	}
	return t.Date.Validate()
}

func (tt TransactionType) IsValid() bool {
	return tt == Income || tt == Expense
}

func (tt TransactionType) String() string {
	return string(tt)
}

// NewDate composes a calendar date. Components that do not form a real
// Gregorian date (Feb 30, month 13) are rejected instead of normalized.
func NewDate(year, month, day int) (Date, error) {
	if year < 1 || year > 9999 || month < 1 || month > 12 || day < 1 {
		return Date{}, ErrInvalidDate
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// Capitalize upper-cases the first letter and lower-cases the rest. It is the
// normalization applied to category labels and to search queries.
func Capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}

// NormalizeCategory trims and capitalizes a category label.
func NormalizeCategory(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrEmptyCategory
	}
	return Capitalize(s), nil
}

// Len returns the number of transactions across all buckets.
func (b Book) Len() int {
	n := 0
	for _, bucket := range b {
		n += len(bucket.Transactions)
	}
	return n
}

// Clone returns a deep copy so callers cannot alias store internals.
func (b Book) Clone() Book {
	if b == nil {
		return nil
	}
	out := make(Book, len(b))
	for i, bucket := range b {
		out[i] = Bucket{
			Category:     bucket.Category,
			Transactions: append([]Transaction(nil), bucket.Transactions...),
		}
	}
	return out
}

// Rows flattens the book into display rows in category then bucket order.
func (b Book) Rows() []Row {
	rows := make([]Row, 0, b.Len())
	for _, bucket := range b {
		for _, t := range bucket.Transactions {
			rows = append(rows, Row{
				ID:       t.ID,
				Category: bucket.Category,
				Amount:   t.Amount,
				Type:     t.Type,
				Date:     t.Date,
			})
		}
	}
	return rows
}
