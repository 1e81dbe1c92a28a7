package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"budget/internal/log"
)

// shutdownTimeout bounds how long the worker waits for the running pass.
const shutdownTimeout = 30 * time.Second

// NewWorkerCommand creates the worker command.
func NewWorkerCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Keep delivering queued transactions",
		Long: `Run a reconciliation pass at startup and then every SYNC_INTERVAL until
interrupted. Synced entries older than PRUNE_AFTER are removed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, app *App, _ *OutputFormatter) error {
				return runWorker(ctx, app)
			})
		},
	}
	return cmd
}

func runWorker(ctx context.Context, app *App) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := app.Logger.WithComponent(log.ComponentWorker)
	logger.InfoContext(ctx, "Starting worker",
		log.FieldBackend, app.Config.LedgerBackend,
		"db_path", app.Config.DBPath)

	g, gctx := errgroup.WithContext(ctx)

	if err := app.Reconciler.Start(gctx); err != nil {
		return WrapExitError(ExitCommandError, "start reconciler", err)
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down worker...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return app.Reconciler.Stop(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return WrapExitError(ExitCommandError, "worker shutdown", err)
	}
	logger.Info("Worker shutdown complete")
	return nil
}
