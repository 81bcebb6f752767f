package ledger

import (
	"fintrack/internal/core"
)

// Edit is one field change applied by Store.Update.
type Edit struct {
	Field    core.Field
	amount   core.Money
	typ      core.TransactionType
	date     core.Date
	category string
}

// SetAmount replaces the amount.
func SetAmount(m core.Money) Edit {
	return Edit{Field: core.FieldAmount, amount: m}
}

// SetType replaces the transaction type.
func SetType(t core.TransactionType) Edit {
	return Edit{Field: core.FieldType, typ: t}
}

// SetDate replaces the date.
func SetDate(d core.Date) Edit {
	return Edit{Field: core.FieldDate, date: d}
}

// SetCategory moves the transaction to another category (its purpose).
func SetCategory(category string) Edit {
	return Edit{Field: core.FieldCategory, category: category}
}

// ParseEdit validates a user-entered value for field.
func ParseEdit(field core.Field, value string) (Edit, error) {
	switch field {
	case core.FieldAmount:
		m, err := core.ParseAmount(value)
		if err != nil {
			return Edit{}, err
		}
		return SetAmount(m), nil
	case core.FieldType:
		t, err := core.ParseType(value)
		if err != nil {
			return Edit{}, err
		}
		return SetType(t), nil
	case core.FieldDate:
		d, err := core.ParseDate(value)
		if err != nil {
			return Edit{}, err
		}
		return SetDate(d), nil
	case core.FieldCategory:
		c, err := core.NormalizeCategory(value)
		if err != nil {
			return Edit{}, err
		}
		return SetCategory(c), nil
	}
	return Edit{}, core.ErrUnknownField
}

// apply mutates the transaction at loc in place, or moves it for a category
// edit, and returns its new location.
func (s *Store) apply(loc Location, e Edit) (Location, error) {
	txns := s.buckets[loc.Category]
	switch e.Field {
	case core.FieldAmount:
		if err := e.amount.Validate(); err != nil {
			return loc, err
		}
		txns[loc.Index].Amount = e.amount
	case core.FieldType:
		if !e.typ.IsValid() {
			return loc, core.ErrInvalidType
		}
		txns[loc.Index].Type = e.typ
	case core.FieldDate:
		if err := e.date.Validate(); err != nil {
			return loc, err
		}
		txns[loc.Index].Date = e.date
	case core.FieldCategory:
		category, err := core.NormalizeCategory(e.category)
		if err != nil {
			return loc, err
		}
		t := s.removeAt(loc)
		return s.appendTo(category, t), nil
	default:
		return loc, core.ErrUnknownField
	}
	return loc, nil
}
