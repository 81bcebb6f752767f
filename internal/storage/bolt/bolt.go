// Package bolt persists the transaction store in a bbolt database.
package bolt

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	bbolt "go.etcd.io/bbolt"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// BucketCategories holds one key per category: the big-endian position maps
// to the JSON encoded bucket, so key order is category order.
const BucketCategories = "categories"

type Store struct {
	db   *bbolt.DB
	path string
}

var _ storage.Persister = (*Store)(nil)

type bucketValue struct {
	Category     string             `json:"category"`
	Transactions []transactionValue `json:"transactions"`
}

type transactionValue struct {
	Amount string `json:"amount"`
	Type   string `json:"type"`
	Date   string `json:"date"`
}

// New opens (creating if needed) the database file at dbPath.
func New(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	db, err := bbolt.Open(dbPath, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return &Store{db: db, path: dbPath}, nil
}

func (s *Store) Location() string {
	return s.path
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Load reads the categories bucket in key order. The bucket only exists
// after a first Save.
func (s *Store) Load(ctx context.Context) (core.Book, error) {
	var book core.Book
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(BucketCategories))
		if b == nil {
			return fmt.Errorf("%w: %s", storage.ErrNotFound, s.path)
		}
		book = core.Book{}
		return b.ForEach(func(k, v []byte) error {
			bucket, err := decodeBucket(v)
			if err != nil {
				return fmt.Errorf("%w: key %d: %v", storage.ErrMalformed, btoi(k), err)
			}
			book = append(book, bucket)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	slog.DebugContext(ctx, "Loaded ledger from bolt",
		"path", s.path,
		"categories", len(book),
		"transactions", book.Len())
	return book, nil
}

func decodeBucket(data []byte) (core.Bucket, error) {
	var v bucketValue
	if err := json.Unmarshal(data, &v); err != nil {
		return core.Bucket{}, err
	}
	if v.Category == "" {
		return core.Bucket{}, core.ErrEmptyCategory
	}
	bucket := core.Bucket{Category: v.Category, Transactions: make([]core.Transaction, 0, len(v.Transactions))}
	for i, tv := range v.Transactions {
		m, err := core.ParseStoredAmount(tv.Amount)
		if err != nil {
			return core.Bucket{}, fmt.Errorf("%s #%d amount %q: %w", v.Category, i, tv.Amount, err)
		}
		tt, err := core.ParseStoredType(tv.Type)
		if err != nil {
			return core.Bucket{}, fmt.Errorf("%s #%d type %q: %w", v.Category, i, tv.Type, err)
		}
		d, err := core.ParseDate(tv.Date)
		if err != nil {
			return core.Bucket{}, fmt.Errorf("%s #%d date %q: %w", v.Category, i, tv.Date, err)
		}
		bucket.Transactions = append(bucket.Transactions, core.NewTransaction(m, tt, d))
	}
	return bucket, nil
}

// Save drops and recreates the categories bucket in one bolt transaction.
func (s *Store) Save(ctx context.Context, book core.Book) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		name := []byte(BucketCategories)
		if tx.Bucket(name) != nil {
			if err := tx.DeleteBucket(name); err != nil {
				return fmt.Errorf("failed to drop bucket %s: %w", BucketCategories, err)
			}
		}
		b, err := tx.CreateBucket(name)
		if err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", BucketCategories, err)
		}
		for i, bucket := range book {
			v := bucketValue{Category: bucket.Category, Transactions: make([]transactionValue, 0, len(bucket.Transactions))}
			for _, t := range bucket.Transactions {
				v.Transactions = append(v.Transactions, transactionValue{
					Amount: t.Amount.String(),
					Type:   t.Type.String(),
					Date:   t.Date.String(),
				})
			}
			data, err := json.Marshal(v)
			if err != nil {
				return fmt.Errorf("failed to marshal value: %w", err)
			}
			if err := b.Put(itob(int64(i)), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	slog.DebugContext(ctx, "Saved ledger to bolt",
		"path", s.path,
		"categories", len(book),
		"transactions", book.Len())
	return nil
}

func itob(v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}

func btoi(b []byte) int64 {
	if len(b) != 8 {
		return -1
	}
	return int64(binary.BigEndian.Uint64(b))
}
