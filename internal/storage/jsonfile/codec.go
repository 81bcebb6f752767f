package jsonfile

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// record is the on-disk shape of one transaction. Amount is written as a
// two-decimal string; numeric literals are accepted on read.
type record struct {
	Amount json.Number `json:"amount"`
	Type   string      `json:"type"`
	Date   string      `json:"date"`
}

func (r record) transaction() (core.Transaction, error) {
	amount, err := core.ParseStoredAmount(r.Amount.String())
	if err != nil {
		return core.Transaction{}, fmt.Errorf("amount %q: %w", r.Amount, err)
	}
	typ, err := core.ParseStoredType(r.Type)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("type %q: %w", r.Type, err)
	}
	date, err := core.ParseDate(r.Date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("date %q: %w", r.Date, err)
	}
	return core.NewTransaction(amount, typ, date), nil
}

// Decode parses a backing file. Category order is taken from the file.
// A category key that appears twice has its transactions merged into the
// first occurrence. Any structural or value error yields storage.ErrMalformed
// and no book.
func Decode(r io.Reader) (core.Book, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	if err := expectDelim(dec, '{'); err != nil {
		return nil, malformed(err)
	}

	book := core.Book{}
	index := map[string]int{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, malformed(err)
		}
		category, ok := tok.(string)
		if !ok || category == "" {
			return nil, malformed(fmt.Errorf("invalid category key %v", tok))
		}
		if err := expectDelim(dec, '['); err != nil {
			return nil, malformed(fmt.Errorf("category %q: %w", category, err))
		}

		var txns []core.Transaction
		for dec.More() {
			var rec record
			if err := dec.Decode(&rec); err != nil {
				return nil, malformed(fmt.Errorf("category %q: %w", category, err))
			}
			t, err := rec.transaction()
			if err != nil {
				return nil, malformed(fmt.Errorf("category %q: %w", category, err))
			}
			txns = append(txns, t)
		}
		if err := expectDelim(dec, ']'); err != nil {
			return nil, malformed(fmt.Errorf("category %q: %w", category, err))
		}

		if i, ok := index[category]; ok {
			book[i].Transactions = append(book[i].Transactions, txns...)
			continue
		}
		index[category] = len(book)
		book = append(book, core.Bucket{Category: category, Transactions: txns})
	}

	if err := expectDelim(dec, '}'); err != nil {
		return nil, malformed(err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, malformed(errors.New("trailing data after top-level object"))
	}
	return book, nil
}

// Encode writes the book in the line-oriented layout of existing files: one
// key per category in book order, one transaction object per line with the
// fields amount, type and date in that order.
func Encode(w io.Writer, book core.Book) error {
	bw := bufio.NewWriter(w)
	bw.WriteString("{\n")
	for i, bucket := range book {
		fmt.Fprintf(bw, "  %s: [", quote(bucket.Category))
		for j, t := range bucket.Transactions {
			if j == 0 {
				bw.WriteString("\n    ")
			} else {
				bw.WriteString(",\n    ")
			}
			fmt.Fprintf(bw, `{"amount": %s, "type": %s, "date": %s}`,
				quote(t.Amount.String()), quote(t.Type.String()), quote(t.Date.String()))
		}
		if len(bucket.Transactions) > 0 {
			bw.WriteString("\n  ")
		}
		bw.WriteString("]")
		if i < len(book)-1 {
			bw.WriteString(",")
		}
		bw.WriteString("\n")
	}
	bw.WriteString("}\n")
	return bw.Flush()
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}

func quote(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	return string(bytes.TrimRight(buf.Bytes(), "\n"))
}

func malformed(err error) error {
	return fmt.Errorf("%w: %v", storage.ErrMalformed, err)
}
