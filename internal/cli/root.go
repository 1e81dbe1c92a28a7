package cli

import (
	"context"
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	DBPath  string
	Backend string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the budget CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Offline-first budget ledger client",
		Long: `Record income and expenses against a remote budget ledger.

Transactions that cannot reach the ledger are kept in a local SQLite queue
and delivered by "budget sync" or the long-running "budget worker".`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", "", "local queue database (overrides BUDGET_DB_PATH)")
	cmd.PersistentFlags().StringVar(&opts.Backend, "backend", "", "remote ledger backend (overrides LEDGER_BACKEND)")

	cmd.AddCommand(NewSubmitCommand(opts))
	cmd.AddCommand(NewSyncCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewBalanceCommand(opts))
	cmd.AddCommand(NewWorkerCommand(opts))

	return cmd
}

// withApp loads config, builds the App and runs fn with it.
func withApp(cmd *cobra.Command, opts *RootOptions, fn func(ctx context.Context, app *App, out *OutputFormatter) error) error {
	cfg, err := LoadConfig(opts)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	logger, err := SetupLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid logging settings", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	app, err := NewApp(ctx, cfg, logger)
	if err != nil {
		return WrapExitError(ExitCommandError, "startup failed", err)
	}
	defer func() {
		if cerr := app.Close(); cerr != nil {
			logger.Warn("Shutdown cleanup failed", "error", cerr)
		}
	}()

	out := &OutputFormatter{
		Format: opts.Format,
		Writer: cmd.OutOrStdout(),
	}
	return fn(ctx, app, out)
}
