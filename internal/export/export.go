// Package export renders the ledger in portable formats.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"fintrack/internal/core"
	"fintrack/internal/sheets"
	"fintrack/internal/storage/jsonfile"
)

type Format string

const (
	FormatJSON   Format = "json"
	FormatCSV    Format = "csv"
	FormatYAML   Format = "yaml"
	FormatSheets Format = "sheets"
)

// Formats lists the accepted --format values.
func Formats() []Format {
	return []Format{FormatJSON, FormatCSV, FormatYAML, FormatSheets}
}

func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats() {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

// Write renders book to w. The sheets format has no local rendering and is
// rejected here.
func Write(w io.Writer, book core.Book, f Format) error {
	switch f {
	case FormatJSON:
		return jsonfile.Encode(w, book)
	case FormatCSV:
		return WriteCSV(w, book)
	case FormatYAML:
		return WriteYAML(w, book)
	}
	return fmt.Errorf("format %q cannot be written to a file", f)
}

// WriteCSV writes the header and one record per transaction.
func WriteCSV(w io.Writer, book core.Book) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(sheets.Values(book)); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

type yamlBucket struct {
	Category     string            `yaml:"category"`
	Transactions []yamlTransaction `yaml:"transactions"`
}

type yamlTransaction struct {
	Amount string `yaml:"amount"`
	Type   string `yaml:"type"`
	Date   string `yaml:"date"`
}

// WriteYAML writes an ordered list of categories with their transactions.
func WriteYAML(w io.Writer, book core.Book) error {
	doc := make([]yamlBucket, 0, len(book))
	for _, b := range book {
		yb := yamlBucket{Category: b.Category, Transactions: make([]yamlTransaction, 0, len(b.Transactions))}
		for _, t := range b.Transactions {
			yb.Transactions = append(yb.Transactions, yamlTransaction{
				Amount: t.Amount.String(),
				Type:   t.Type.String(),
				Date:   t.Date.String(),
			})
		}
		doc = append(doc, yb)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("write yaml: %w", err)
	}
	return enc.Close()
}
