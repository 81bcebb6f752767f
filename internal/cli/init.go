// Package cli builds the fintrack command tree and the process bootstrap
// shared by its commands: environment, configuration, logging, storage and
// signal handling.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"fintrack/internal/amqp"
	"fintrack/internal/backend"
	"fintrack/internal/config"
	"fintrack/internal/ledger"
	"fintrack/internal/log"
	"fintrack/internal/services"
)

// SetupLogger builds the process logger at the configured level, or Debug
// when debug is set, and makes it the slog default.
func SetupLogger(level string, debug bool, w io.Writer) (*log.Logger, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := log.DefaultConfig()
	cfg.Level = lvl
	if debug {
		cfg.Level = slog.LevelDebug
	}
	cfg.Output = w
	logger := log.New(cfg)
	log.SetDefault(logger)
	return logger, nil
}

// LoadEnvFile loads path into the environment. A missing default .env is
// not an error; a missing file named explicitly is.
func LoadEnvFile(path string) error {
	if path == "" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load .env: %w", err)
		}
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// LoadAndValidateConfig loads the environment configuration, applies
// overrides and validates the result.
func LoadAndValidateConfig(overrides func(*config.Config)) (*config.Config, error) {
	cfg := config.Load()
	if overrides != nil {
		overrides(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// OpenLedger creates the configured persister, loads the store through it
// and connects the change notifier when AMQP is configured. With
// requireExisting a missing ledger is an error instead of an empty store.
// The returned service owns the persister; callers must Close it.
func OpenLedger(ctx context.Context, cfg *config.Config, logger *log.Logger, requireExisting bool) (*services.LedgerService, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, err
	}

	load := ledger.Load
	if requireExisting {
		load = ledger.LoadExisting
	}
	store, err := load(ctx, res.Persister)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to load ledger",
			log.FieldOperation, log.OpLoad,
			log.FieldBackend, cfg.DataBackend,
			log.FieldPath, res.Persister.Location(),
			log.FieldError, err)
		if cerr := res.Cleanup(); cerr != nil {
			logger.WarnContext(ctx, "Failed to close storage", log.FieldError, cerr)
		}
		return nil, fmt.Errorf("load %s: %w", res.Persister.Location(), err)
	}

	var notifier services.Notifier
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			// the backing store stays the source of truth
			logger.WarnContext(ctx, "AMQP unavailable, change notifications disabled", log.FieldError, err)
		} else {
			notifier = client
		}
	}
	return services.NewLedgerService(store, notifier, logger), nil
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM, or
// when stop is called.
func GracefulShutdown(parent context.Context, logger *log.Logger) (ctx context.Context, stop context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
