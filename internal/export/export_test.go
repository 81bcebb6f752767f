package export

import (
	"bytes"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"fintrack/internal/core"
	"fintrack/internal/storage/jsonfile"
)

func sampleBook(t *testing.T) core.Book {
	t.Helper()
	a, _ := core.ParseAmount("50")
	b, _ := core.ParseAmount("2000")
	d1, _ := core.NewDate(2024, 1, 5)
	d2, _ := core.NewDate(2024, 1, 1)
	return core.Book{
		{Category: "Groceries", Transactions: []core.Transaction{core.NewTransaction(a, core.Expense, d1)}},
		{Category: "Salary", Transactions: []core.Transaction{core.NewTransaction(b, core.Income, d2)}},
	}
}

func TestParseFormat(t *testing.T) {
	for _, in := range []string{"json", "CSV", " yaml ", "sheets"} {
		if _, err := ParseFormat(in); err != nil {
			t.Fatalf("ParseFormat(%q): %v", in, err)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Fatalf("expected error for xml")
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, sampleBook(t), FormatCSV); err != nil {
		t.Fatalf("write: %v", err)
	}
	want := "Transaction,Amount,Type,Date\nGroceries,50.00,Expense,2024-01-05\nSalary,2000.00,Income,2024-01-01\n"
	if buf.String() != want {
		t.Fatalf("csv =\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestWriteYAMLKeepsOrder(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, sampleBook(t), FormatYAML); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := buf.String()
	if strings.Index(out, "Groceries") > strings.Index(out, "Salary") {
		t.Fatalf("category order lost:\n%s", out)
	}

	var doc []yamlBucket
	if err := yaml.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("yaml output must parse: %v", err)
	}
	if len(doc) != 2 || doc[1].Transactions[0].Amount != "2000.00" || doc[0].Transactions[0].Date != "2024-01-05" {
		t.Fatalf("unexpected document %+v", doc)
	}
}

func TestWriteJSONMatchesBackingFile(t *testing.T) {
	var got, want bytes.Buffer
	if err := Write(&got, sampleBook(t), FormatJSON); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := jsonfile.Encode(&want, sampleBook(t)); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if got.String() != want.String() {
		t.Fatalf("json export differs from backing file format")
	}
}

func TestWriteSheetsRejected(t *testing.T) {
	if err := Write(&bytes.Buffer{}, sampleBook(t), FormatSheets); err == nil {
		t.Fatalf("sheets must not render locally")
	}
}
