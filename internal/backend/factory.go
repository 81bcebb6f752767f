package backend

import (
	"context"
	"fmt"

	"fintrack/internal/log"
	"fintrack/internal/storage/bolt"
	"fintrack/internal/storage/jsonfile"
	"fintrack/internal/storage/memory"
	"fintrack/internal/storage/sqlite"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case JSONBackend:
		p := jsonfile.New(config.LedgerFile)
		f.logger.DebugContext(ctx, "Initialized JSON file backend", log.FieldPath, config.LedgerFile)
		return &BackendResult{Persister: p, Cleanup: p.Close}, nil

	case SQLiteBackend:
		repo, err := sqlite.New(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.DebugContext(ctx, "Initialized SQLite backend", log.FieldPath, config.SQLiteDBPath)
		return &BackendResult{Persister: repo, Cleanup: repo.Close}, nil

	case BoltBackend:
		store, err := bolt.New(config.BoltDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize bolt store: %w", err)
		}
		f.logger.DebugContext(ctx, "Initialized bolt backend", log.FieldPath, config.BoltDBPath)
		return &BackendResult{Persister: store, Cleanup: store.Close}, nil

	case MemoryBackend:
		f.logger.WarnContext(ctx, "Using memory backend, changes are lost on exit")
		store := memory.New()
		return &BackendResult{Persister: store, Cleanup: store.Close}, nil
	}
	return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
}
