package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"fintrack/internal/core"
	"fintrack/internal/export"
	"fintrack/internal/ledger"
	"fintrack/internal/log"
	"fintrack/internal/query"
	"fintrack/internal/services"
	"fintrack/internal/sheets/google"
	"fintrack/internal/tui"
)

// transactionFlags identify or describe one transaction on the command line.
type transactionFlags struct {
	amount   string
	category string
	typ      string
	date     string
}

func (f *transactionFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.amount, "amount", "", "transaction amount, e.g. 12.50")
	flags.StringVar(&f.category, "category", "", "category (purpose) of the transaction")
	flags.StringVar(&f.typ, "type", "", "CR for income, DR for expense")
	flags.StringVar(&f.date, "date", "", "transaction date as YYYY-MM-DD")
	for _, name := range []string{"amount", "category", "type", "date"} {
		_ = cmd.MarkFlagRequired(name)
	}
}

// parse validates the flags of a new transaction.
func (f *transactionFlags) parse() (string, core.Transaction, error) {
	return f.parseWith(core.ParseAmount)
}

// parseTarget validates the flags that identify an existing transaction,
// whose stored amount may be zero or negative.
func (f *transactionFlags) parseTarget() (string, core.Transaction, error) {
	return f.parseWith(core.ParseLookupAmount)
}

func (f *transactionFlags) parseWith(parseAmount func(string) (core.Money, error)) (string, core.Transaction, error) {
	amount, err := parseAmount(f.amount)
	if err != nil {
		return "", core.Transaction{}, fmt.Errorf("amount %q: %w", f.amount, err)
	}
	category, err := core.NormalizeCategory(f.category)
	if err != nil {
		return "", core.Transaction{}, fmt.Errorf("category: %w", err)
	}
	typ, err := core.ParseType(f.typ)
	if err != nil {
		return "", core.Transaction{}, fmt.Errorf("type %q: %w", f.typ, err)
	}
	date, err := core.ParseDate(f.date)
	if err != nil {
		return "", core.Transaction{}, fmt.Errorf("date %q: %w", f.date, err)
	}
	return category, core.NewTransaction(amount, typ, date), nil
}

// sortFlags select an optional row order.
type sortFlags struct {
	field string
	desc  bool
}

func (f *sortFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.field, "sort", "", "sort rows by category, amount, type or date")
	cmd.Flags().BoolVar(&f.desc, "desc", false, "sort in descending order")
}

func (f *sortFlags) state() (query.SortState, error) {
	if f.field == "" {
		return query.SortState{}, nil
	}
	field, err := core.ParseField(f.field)
	if err != nil {
		return query.SortState{}, fmt.Errorf("sort %q: %w", f.field, err)
	}
	return query.SortState{Field: field, Descending: f.desc}, nil
}

func (a *app) addCommand() *cobra.Command {
	var tf transactionFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a transaction",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			category, t, err := tf.parse()
			if err != nil {
				return err
			}
			return a.withLedger(cmd.Context(), false, func(svc *services.LedgerService) error {
				if _, err := svc.Add(cmd.Context(), category, t); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "The transaction has been successfully added.")
				return nil
			})
		},
	}
	tf.register(cmd)
	return cmd
}

func (a *app) listCommand() *cobra.Command {
	var sf sortFlags
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every transaction",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sort, err := sf.state()
			if err != nil {
				return err
			}
			return a.withLedger(cmd.Context(), false, func(svc *services.LedgerService) error {
				rows := svc.Rows(sort)
				if len(rows) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "There are no financial records.")
					return nil
				}
				return printRows(cmd.OutOrStdout(), rows)
			})
		},
	}
	sf.register(cmd)
	return cmd
}

func (a *app) updateCommand() *cobra.Command {
	var (
		tf   transactionFlags
		sets []string
	)
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Edit the first transaction matching the given values",
		Long: `Edit the first transaction of a category whose amount, type and date
match the given values. Every --set is applied and the result saved once.

Example:
  fintrack update --amount 50 --category groceries --type DR --date 2024-01-05 \
    --set amount=55 --set purpose=food`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			category, target, err := tf.parseTarget()
			if err != nil {
				return err
			}
			edits, err := parseEdits(sets)
			if err != nil {
				return err
			}
			return a.withLedger(cmd.Context(), false, func(svc *services.LedgerService) error {
				if _, err := svc.Update(cmd.Context(), category, target, edits...); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "All changes to the transaction have been made.")
				return nil
			})
		},
	}
	tf.register(cmd)
	cmd.Flags().StringArrayVar(&sets, "set", nil, "field=value to change (amount, purpose, type, date); repeatable")
	_ = cmd.MarkFlagRequired("set")
	return cmd
}

func parseEdits(sets []string) ([]ledger.Edit, error) {
	edits := make([]ledger.Edit, 0, len(sets))
	for _, s := range sets {
		name, value, ok := strings.Cut(s, "=")
		if !ok {
			return nil, fmt.Errorf("--set %q: expected field=value", s)
		}
		field, err := core.ParseField(name)
		if err != nil {
			return nil, fmt.Errorf("--set %q: %w", s, err)
		}
		edit, err := ledger.ParseEdit(field, value)
		if err != nil {
			return nil, fmt.Errorf("--set %q: %w", s, err)
		}
		edits = append(edits, edit)
	}
	return edits, nil
}

func (a *app) deleteCommand() *cobra.Command {
	var tf transactionFlags
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Remove the first transaction matching the given values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			category, target, err := tf.parseTarget()
			if err != nil {
				return err
			}
			return a.withLedger(cmd.Context(), false, func(svc *services.LedgerService) error {
				if _, err := svc.Delete(cmd.Context(), category, target); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "The transaction has been successfully removed.")
				return nil
			})
		},
	}
	tf.register(cmd)
	return cmd
}

func (a *app) summaryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show totals per category and the usable balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withLedger(cmd.Context(), false, func(svc *services.LedgerService) error {
				s := svc.Summary()
				w := cmd.OutOrStdout()
				tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "Category\tIncome\tExpense")
				for _, c := range s.ByCategory {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", c.Name, c.Income, c.Expense)
				}
				if err := tw.Flush(); err != nil {
					return err
				}
				_, err := fmt.Fprintf(w, "\nTotal Expenses are : %s\nTotal Income is : %s\nUsable Balance : %s\n",
					s.TotalExpense, s.TotalIncome, s.UsableBalance)
				return err
			})
		},
	}
}

func (a *app) searchCommand() *cobra.Command {
	var sf sortFlags
	cmd := &cobra.Command{
		Use:   "search FIELD QUERY",
		Short: "Find transactions by category, amount, type or date",
		Long: `Find transactions whose FIELD matches QUERY:
  category  the capitalized query is part of the category
  amount    the query equals the amount
  type      the query is part of the type (income, expense)
  date      the query is part of the YYYY-MM-DD date`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			field, err := core.ParseField(args[0])
			if err != nil {
				return fmt.Errorf("field %q: %w", args[0], err)
			}
			sort, err := sf.state()
			if err != nil {
				return err
			}
			return a.withLedger(cmd.Context(), false, func(svc *services.LedgerService) error {
				rows, err := svc.Search(field, args[1], sort)
				if errors.Is(err, services.ErrNoResults) {
					fmt.Fprintln(cmd.OutOrStdout(), "No results were found to match the chosen search criteria.")
					return nil
				}
				if err != nil {
					return err
				}
				return printRows(cmd.OutOrStdout(), rows)
			})
		},
	}
	sf.register(cmd)
	return cmd
}

func (a *app) exportCommand() *cobra.Command {
	var format, out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the ledger as json, csv, yaml or to Google Sheets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			return a.withLedger(cmd.Context(), false, func(svc *services.LedgerService) error {
				if f == export.FormatSheets {
					return a.exportSheets(cmd, svc.Book())
				}

				if out == "" {
					if err := export.Write(cmd.OutOrStdout(), svc.Book(), f); err != nil {
						return err
					}
				} else if err := exportFile(out, svc.Book(), f); err != nil {
					return err
				}
				a.logger.InfoContext(cmd.Context(), "Ledger exported",
					log.FieldOperation, log.OpExport, "format", string(f), log.FieldPath, out)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", string(export.FormatJSON), "export format: json, csv, yaml or sheets")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	return cmd
}

func exportFile(path string, book core.Book, f export.Format) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := export.Write(file, book, f); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

func (a *app) exportSheets(cmd *cobra.Command, book core.Book) error {
	if err := a.cfg.ValidateSheets(); err != nil {
		return err
	}
	client, err := google.New(cmd.Context(), google.Options{
		SpreadsheetID:   a.cfg.GoogleSpreadsheetID,
		SheetName:       a.cfg.GoogleSheetName,
		CredentialsJSON: a.cfg.GoogleServiceAccountJSON,
		CredentialsFile: a.cfg.GoogleServiceAccountFile,
	}, a.logger)
	if err != nil {
		return err
	}
	n, err := client.WriteBook(cmd.Context(), book)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d transactions written to %s.\n", n, a.cfg.GoogleSheetName)
	return nil
}

func (a *app) browseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Browse, search and sort transactions in a terminal table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := GracefulShutdown(cmd.Context(), a.logger)
			defer stop()
			return a.withLedger(ctx, true, func(svc *services.LedgerService) error {
				return tui.Run(ctx, svc, cmd.InOrStdin(), cmd.OutOrStdout())
			})
		},
	}
}

func printRows(w io.Writer, rows []core.Row) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	var headers []string
	for _, f := range core.Fields() {
		headers = append(headers, f.Label())
	}
	fmt.Fprintln(tw, strings.Join(headers, "\t"))
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Category, r.Amount, r.Type, r.Date)
	}
	return tw.Flush()
}
