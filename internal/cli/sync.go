package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// SyncResult is the JSON payload of the sync command.
type SyncResult struct {
	Attempted  int   `json:"attempted"`
	Synced     int   `json:"synced"`
	Failed     int   `json:"failed"`
	Vanished   int   `json:"vanished"`
	DurationMS int64 `json:"duration_ms"`
	Pruned     int64 `json:"pruned"`
}

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Deliver queued transactions once",
		Long: `Run a single reconciliation pass: every pending transaction is sent to
the remote ledger and marked synced on success. Failures stay pending.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, runSync)
		},
	}
	return cmd
}

func runSync(ctx context.Context, app *App, out *OutputFormatter) error {
	pass, err := app.Reconciler.Reconcile(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "sync failed", err)
	}
	pruned, err := app.Reconciler.Prune(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "prune failed", err)
	}

	res := SyncResult{
		Attempted:  pass.Attempted,
		Synced:     pass.Synced,
		Failed:     pass.Failed,
		Vanished:   pass.Vanished,
		DurationMS: pass.Duration.Milliseconds(),
		Pruned:     pruned,
	}
	return out.Emit(res, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "synced %d of %d pending (%d failed)\n", res.Synced, res.Attempted, res.Failed)
		return err
	})
}
