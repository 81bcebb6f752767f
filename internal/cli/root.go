package cli

import (
	"context"

	"github.com/spf13/cobra"

	"fintrack/internal/config"
	"fintrack/internal/log"
	"fintrack/internal/menu"
	"fintrack/internal/services"
)

// app carries the global flags and the state PersistentPreRunE prepares
// for every subcommand.
type app struct {
	ledgerFile string
	backend    string
	envFile    string
	debug      bool

	cfg    *config.Config
	logger *log.Logger
}

// NewRootCommand returns the fintrack command tree. Without a subcommand it
// runs the interactive menu.
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "fintrack",
		Short: "Personal finance record keeper",
		Long: `fintrack records income and expense transactions grouped by category
and keeps them in a single backing store (a JSON file by default).

Without a subcommand it starts the interactive menu.

Example:
  fintrack add --amount 12.50 --category groceries --type DR --date 2024-01-05
  fintrack search type expense --sort amount --desc
  fintrack serve`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		RunE:              a.runMenu,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.ledgerFile, "file", "f", "", "backing file for the json backend (overrides LEDGER_FILE)")
	flags.StringVar(&a.backend, "backend", "", "storage backend: json, sqlite, bolt or memory (overrides DATA_BACKEND)")
	flags.StringVar(&a.envFile, "env", "", "env file to load (default is .env when present)")
	flags.BoolVar(&a.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		a.addCommand(),
		a.listCommand(),
		a.updateCommand(),
		a.deleteCommand(),
		a.summaryCommand(),
		a.searchCommand(),
		a.exportCommand(),
		a.browseCommand(),
		a.serveCommand(),
		&cobra.Command{
			Use:   "menu",
			Short: "Run the interactive text menu",
			Args:  cobra.NoArgs,
			RunE:  a.runMenu,
		},
	)
	return root
}

// Execute runs the command tree with the process arguments.
func Execute() error {
	return NewRootCommand().Execute()
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if err := LoadEnvFile(a.envFile); err != nil {
		return err
	}
	cfg, err := LoadAndValidateConfig(func(c *config.Config) {
		if a.ledgerFile != "" {
			c.LedgerFile = a.ledgerFile
		}
		if a.backend != "" {
			c.DataBackend = a.backend
		}
	})
	if err != nil {
		return err
	}
	logger, err := SetupLogger(cfg.LogLevel, a.debug, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger.WithComponent(log.ComponentCLI)
	a.logger.Debug("Configuration loaded",
		log.FieldBackend, cfg.DataBackend,
		log.FieldPath, cfg.StoragePath())
	return nil
}

// withLedger opens the store, runs fn and closes the store again.
func (a *app) withLedger(ctx context.Context, requireExisting bool, fn func(*services.LedgerService) error) (err error) {
	svc, err := OpenLedger(ctx, a.cfg, a.logger, requireExisting)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := svc.Close(); cerr != nil {
			a.logger.WarnContext(ctx, "Failed to close ledger", log.FieldError, cerr)
		}
	}()
	return fn(svc)
}

func (a *app) runMenu(cmd *cobra.Command, _ []string) error {
	ctx, stop := GracefulShutdown(cmd.Context(), a.logger)
	defer stop()
	return a.withLedger(ctx, false, func(svc *services.LedgerService) error {
		return menu.New(svc, cmd.InOrStdin(), cmd.OutOrStdout(), a.logger).Run(ctx)
	})
}
