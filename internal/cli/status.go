package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"budget/internal/core"
)

// StatusResult is the JSON payload of the status command.
type StatusResult struct {
	Pending int64         `json:"pending"`
	Synced  int64         `json:"synced"`
	Entries []StatusEntry `json:"entries,omitempty"`
}

// StatusEntry is one pending entry in StatusResult.
type StatusEntry struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Value int64  `json:"value"`
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	var list bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the local queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, app *App, out *OutputFormatter) error {
				return runStatus(ctx, app, out, list)
			})
		},
	}

	cmd.Flags().BoolVarP(&list, "list", "l", false, "list pending entries")

	return cmd
}

func runStatus(ctx context.Context, app *App, out *OutputFormatter, list bool) error {
	counts, err := app.Store.Counts(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "read queue", err)
	}
	res := StatusResult{Pending: counts[core.PendingSync], Synced: counts[core.Synced]}

	if list {
		for e, err := range app.Store.ListByStatus(ctx, core.PendingSync) {
			if err != nil {
				return WrapExitError(ExitCommandError, "list pending entries", err)
			}
			res.Entries = append(res.Entries, StatusEntry{ID: e.ID, Name: e.Name, Value: e.Value})
		}
	}

	return out.Emit(res, func(w io.Writer) error {
		if _, err := fmt.Fprintf(w, "pending: %d\nsynced: %d\n", res.Pending, res.Synced); err != nil {
			return err
		}
		for _, e := range res.Entries {
			if _, err := fmt.Fprintf(w, "  %s %s %s\n", e.ID, e.Name, core.FormatAmount(e.Value)); err != nil {
				return err
			}
		}
		return nil
	})
}
