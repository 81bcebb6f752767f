package core

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// Field selects a transaction attribute for search, sort and update.
type Field string

const (
	FieldCategory Field = "category"
	FieldAmount   Field = "amount"
	FieldType     Field = "type"
	FieldDate     Field = "date"
)

var ErrUnknownField = errors.New("unknown field")

// Fields lists the selectable fields in table column order.
func Fields() []Field {
	return []Field{FieldCategory, FieldAmount, FieldType, FieldDate}
}

// ParseField accepts a field name case-insensitively. "purpose" and
// "transaction" are aliases of the category field.
func ParseField(s string) (Field, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "category", "purpose", "transaction":
		return FieldCategory, nil
	case "amount":
		return FieldAmount, nil
	case "type":
		return FieldType, nil
	case "date":
		return FieldDate, nil
	}
	return "", ErrUnknownField
}

// Label is the column heading used by table views.
func (f Field) Label() string {
	if f == FieldCategory {
		return "Transaction"
	}
	return Capitalize(string(f))
}

// ParseType maps CR/DR tokens or the type names themselves, in any case.
func ParseType(s string) (TransactionType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CR", "INCOME":
		return Income, nil
	case "DR", "EXPENSE":
		return Expense, nil
	}
	return "", ErrInvalidType
}

// ParseStoredType accepts only the persisted type names.
func ParseStoredType(s string) (TransactionType, error) {
	switch TransactionType(s) {
	case Income, Expense:
		return TransactionType(s), nil
	}
	return "", ErrInvalidType
}

// ParseDate parses a YYYY-MM-DD date. time.Parse rejects out of range days
// such as 2024-02-30.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// ParseDateParts composes a date from separately entered day, month and
// year strings.
func ParseDateParts(day, month, year string) (Date, error) {
	d, err := strconv.Atoi(strings.TrimSpace(day))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	m, err := strconv.Atoi(strings.TrimSpace(month))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	y, err := strconv.Atoi(strings.TrimSpace(year))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return NewDate(y, m, d)
}
