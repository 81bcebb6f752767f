// Package sqlite persists the transaction store in a SQLite database.
//
// Category order is kept in categories.position and bucket order in
// transactions.position. Amounts, types and dates are stored as the same text
// the JSON backing file uses.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/storage"

	_ "modernc.org/sqlite"
)

type Repository struct {
	db   *sql.DB
	path string
}

var _ storage.Persister = (*Repository)(nil)

// New opens (creating if needed) the database at dbPath and migrates it.
func New(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db, path: dbPath}, nil
}

func (r *Repository) Location() string {
	return r.path
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Load reads every category and transaction in stored order. A database that
// has never been saved to reports storage.ErrNotFound.
func (r *Repository) Load(ctx context.Context) (core.Book, error) {
	var savedAt string
	err := r.db.QueryRowContext(ctx, `SELECT saved_at FROM ledger_meta WHERE id = 1`).Scan(&savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, r.path)
	}
	if err != nil {
		return nil, fmt.Errorf("read ledger meta: %w", err)
	}

	book, index, err := r.loadCategories(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT category_position, amount, type, date
		FROM transactions
		ORDER BY category_position, position`)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			pos                   int64
			amount, typ, dateText string
		)
		if err := rows.Scan(&pos, &amount, &typ, &dateText); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		i, ok := index[pos]
		if !ok {
			return nil, fmt.Errorf("%w: transaction references unknown category position %d", storage.ErrMalformed, pos)
		}
		t, err := decodeTransaction(amount, typ, dateText)
		if err != nil {
			return nil, fmt.Errorf("%w: category %q: %v", storage.ErrMalformed, book[i].Category, err)
		}
		book[i].Transactions = append(book[i].Transactions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}

	slog.DebugContext(ctx, "Loaded ledger from SQLite",
		"path", r.path,
		"saved_at", savedAt,
		"categories", len(book),
		"transactions", book.Len())
	return book, nil
}

func (r *Repository) loadCategories(ctx context.Context) (core.Book, map[int64]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT position, name FROM categories ORDER BY position`)
	if err != nil {
		return nil, nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	book := core.Book{}
	index := make(map[int64]int)
	for rows.Next() {
		var (
			pos  int64
			name string
		)
		if err := rows.Scan(&pos, &name); err != nil {
			return nil, nil, fmt.Errorf("scan category: %w", err)
		}
		index[pos] = len(book)
		book = append(book, core.Bucket{Category: name, Transactions: []core.Transaction{}})
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate categories: %w", err)
	}
	return book, index, nil
}

func decodeTransaction(amount, typ, dateText string) (core.Transaction, error) {
	m, err := core.ParseStoredAmount(amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("amount %q: %w", amount, err)
	}
	tt, err := core.ParseStoredType(typ)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("type %q: %w", typ, err)
	}
	d, err := core.ParseDate(dateText)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("date %q: %w", dateText, err)
	}
	return core.NewTransaction(m, tt, d), nil
}

// Save replaces both tables inside one SQL transaction.
func (r *Repository) Save(ctx context.Context, book core.Book) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM transactions`); err != nil {
		return fmt.Errorf("clear transactions: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM categories`); err != nil {
		return fmt.Errorf("clear categories: %w", err)
	}

	catStmt, err := tx.PrepareContext(ctx, `INSERT INTO categories (position, name) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare category insert: %w", err)
	}
	defer catStmt.Close()

	txnStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO transactions (category_position, position, amount, type, date)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare transaction insert: %w", err)
	}
	defer txnStmt.Close()

	for ci, bucket := range book {
		if _, err := catStmt.ExecContext(ctx, ci, bucket.Category); err != nil {
			return fmt.Errorf("insert category %q: %w", bucket.Category, err)
		}
		for ti, t := range bucket.Transactions {
			if _, err := txnStmt.ExecContext(ctx, ci, ti, t.Amount.String(), t.Type.String(), t.Date.String()); err != nil {
				return fmt.Errorf("insert transaction %s #%d: %w", bucket.Category, ti, err)
			}
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO ledger_meta (id, saved_at) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET saved_at = excluded.saved_at`,
		time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("update ledger meta: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	slog.InfoContext(ctx, "Ledger saved to SQLite",
		"path", r.path,
		"categories", len(book),
		"transactions", book.Len())
	return nil
}
