// Package menu is the numbered text menu over the ledger, driven by any
// line-oriented reader and writer.
package menu

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
	"fintrack/internal/log"
	"fintrack/internal/query"
	"fintrack/internal/services"
)

const banner = `
-----------------------------------------------------------------------------

 Welcome to Your Personal Finance Tracker!!

1. Add a Transaction
2. View All Transactions
3. Update a Transaction
4. Delete a Transaction
5. Display Transactions Summary
6. Search for Transactions
7. Exit Finance Tracker`

const typePrompt = "(Type 'CR' for Income or 'DR' for Expenses) : "

var (
	addPrompts = transactionPrompts{
		amount:   "Enter the amount paid/received during the transaction : ",
		category: "Enter the purpose of the transaction : ",
		typ:      "Enter the type of transaction being made " + typePrompt,
	}
	updatePrompts = transactionPrompts{
		amount:   "Enter the amount of money from the transaction to be updated : ",
		category: "Enter the purpose of the transaction which should be updated : ",
		typ:      "Enter the type of transaction which should be updated " + typePrompt,
		lookup:   true,
	}
	deletePrompts = transactionPrompts{
		amount:   "Enter the amount of money from the transaction to be deleted : ",
		category: "Enter the purpose of the transaction which should be deleted : ",
		typ:      "Enter the type of transaction which should be deleted " + typePrompt,
		lookup:   true,
	}
)

// Menu runs the interactive loop.
type Menu struct {
	svc    *services.LedgerService
	p      *prompter
	logger *log.Logger
}

func New(svc *services.LedgerService, in io.Reader, out io.Writer, logger *log.Logger) *Menu {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Menu{
		svc:    svc,
		p:      &prompter{in: bufio.NewScanner(in), out: out},
		logger: logger.WithComponent(log.ComponentMenu),
	}
}

// Run shows the menu until the user exits or input ends. Storage failures
// of a single action are reported and the loop continues.
func (m *Menu) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		m.p.println(banner)
		choice, err := m.p.ask("\nEnter your choice : ")
		if errors.Is(err, errInputClosed) {
			return nil
		}
		if err != nil {
			return err
		}
		m.p.println("")

		switch strings.TrimSpace(choice) {
		case "1":
			err = m.add(ctx)
		case "2":
			m.viewAll()
		case "3":
			err = m.update(ctx)
		case "4":
			err = m.delete(ctx)
		case "5":
			m.summary()
		case "6":
			err = m.search()
		case "7":
			m.p.println("\nExiting Finance Tracker.\n")
			return nil
		default:
			m.p.println("\nInvalid choice. Please try again.\n")
		}

		if errors.Is(err, errInputClosed) {
			return nil
		}
		if err != nil {
			m.logger.WarnContext(ctx, "Menu action failed", log.FieldOperation, choice, log.FieldError, err)
			m.p.printf("\nThe change could not be saved: %v\n\n", err)
		}
	}
}

func (m *Menu) add(ctx context.Context) error {
	category, t, err := m.p.askTransaction(addPrompts)
	if err != nil {
		return err
	}
	if _, err := m.svc.Add(ctx, category, t); err != nil {
		return err
	}
	m.p.println("\nThe transaction has been successfully added.\n")
	return nil
}

func (m *Menu) viewAll() {
	rows := m.svc.Rows(query.SortState{})
	if len(rows) == 0 {
		m.p.println("There are no financial records.\n")
		return
	}
	for _, r := range rows {
		m.p.printf("Transaction amount : %s\nTransaction purpose : %s\nTransaction type : %s\nTransaction date : %s\n\n\n",
			r.Amount, r.Category, r.Type, r.Date)
	}
}

// locate asks for a transaction by value until it resolves or the user
// gives up. ok is false when the user declined to retry.
func (m *Menu) locate(prompts transactionPrompts) (loc ledger.Location, ok bool, err error) {
	for {
		category, target, err := m.p.askTransaction(prompts)
		if err != nil {
			return ledger.Location{}, false, err
		}
		loc, err := m.svc.Find(category, target)
		if err == nil {
			return loc, true, nil
		}
		if !errors.Is(err, ledger.ErrTransactionNotFound) {
			return ledger.Location{}, false, err
		}
		m.p.println("\nThis transaction could not be found.\n")
		retry, err := m.p.askYesNo("Do you wish to try again? (Y/N) : ")
		if err != nil || !retry {
			return ledger.Location{}, false, err
		}
		m.p.println("")
	}
}

func (m *Menu) update(ctx context.Context) error {
	if m.svc.IsEmpty() {
		m.p.println("No transactions to be updated are available.\n")
		return nil
	}
	loc, ok, err := m.locate(updatePrompts)
	if err != nil || !ok {
		return err
	}

	var edits []ledger.Edit
	for {
		field, err := m.p.askField("\nWhich field do you wish to update? (Please type Amount/Purpose/Type/Date) : ")
		if err != nil {
			return err
		}
		edit, err := m.askEdit(field)
		if err != nil {
			return err
		}
		edits = append(edits, edit)

		more, err := m.p.askYesNo("\nDo you wish to make more updates to this transaction? (Y/N) : ")
		if err != nil {
			return err
		}
		if !more {
			break
		}
	}

	if _, err := m.svc.UpdateAt(ctx, loc, edits...); err != nil {
		return err
	}
	m.p.println("\nAll changes to the transaction have been made.\n")
	return nil
}

func (m *Menu) askEdit(field core.Field) (ledger.Edit, error) {
	switch field {
	case core.FieldAmount:
		a, err := m.p.askAmount("Enter updated amount paid/received : ")
		return ledger.SetAmount(a), err
	case core.FieldCategory:
		c, err := m.p.askCategory("Enter updated purpose : ")
		return ledger.SetCategory(c), err
	case core.FieldType:
		t, err := m.p.askType("Enter updated transaction type " + typePrompt)
		return ledger.SetType(t), err
	default:
		d, err := m.p.askDate()
		return ledger.SetDate(d), err
	}
}

func (m *Menu) delete(ctx context.Context) error {
	if m.svc.IsEmpty() {
		m.p.println("No transactions to be deleted are available.\n")
		return nil
	}
	loc, ok, err := m.locate(deletePrompts)
	if err != nil || !ok {
		return err
	}
	t, err := m.svc.Store().Get(loc)
	if err != nil {
		return err
	}
	if _, err := m.svc.Delete(ctx, loc.Category, t); err != nil {
		return err
	}
	m.p.println("\nThe transaction has been successfully removed.\n")
	return nil
}

func (m *Menu) summary() {
	book := m.svc.Book()
	for _, bucket := range book {
		m.p.printf("%s :\n\n", bucket.Category)
		for i, t := range bucket.Transactions {
			m.p.printf("%d. Transaction amount : %s\n   Transaction type : %s\n   Transaction date : %s\n\n\n",
				i+1, t.Amount, t.Type, t.Date)
		}
	}
	s := core.Summarize(book)
	m.p.printf("Total Expenses are : %s \nTotal Income is : %s \nUsable Balance : %s\n",
		s.TotalExpense, s.TotalIncome, s.UsableBalance)
}

func (m *Menu) search() error {
	field, err := m.p.askField("Search by which field? (Transaction/Amount/Type/Date) : ")
	if err != nil {
		return err
	}
	q, err := m.p.ask("Enter the search term : ")
	if err != nil {
		return err
	}
	rows, err := m.svc.Search(field, q, query.SortState{})
	if errors.Is(err, services.ErrNoResults) {
		m.p.println("\nNo results were found to match the chosen search criteria.\n")
		return nil
	}
	if err != nil {
		return err
	}
	m.printTable(rows)

	sortRows, err := m.p.askYesNo("\nDo you wish to sort the results? (Y/N) : ")
	if err != nil || !sortRows {
		return err
	}
	by, err := m.p.askField("Sort by which field? (Transaction/Amount/Type/Date) : ")
	if err != nil {
		return err
	}
	desc, err := m.p.askYesNo("Sort in descending order? (Y/N) : ")
	if err != nil {
		return err
	}
	m.printTable(query.SortState{Field: by, Descending: desc}.Apply(rows))
	return nil
}

func (m *Menu) printTable(rows []core.Row) {
	tw := tabwriter.NewWriter(m.p.out, 0, 0, 2, ' ', 0)
	var headers []string
	for _, f := range core.Fields() {
		headers = append(headers, f.Label())
	}
	fmt.Fprintln(tw, "\n"+strings.Join(headers, "\t"))
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Category, r.Amount, r.Type, r.Date)
	}
	_ = tw.Flush()
}
