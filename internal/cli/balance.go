package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"budget/internal/core"
)

// BalanceResult is the JSON payload of the balance command.
type BalanceResult struct {
	Total   int64        `json:"total"`
	Count   int          `json:"count"`
	Pending int          `json:"pending"`
	Offline bool         `json:"offline"`
	Points  []core.Point `json:"points,omitempty"`
}

// NewBalanceCommand creates the balance command.
func NewBalanceCommand(rootOpts *RootOptions) *cobra.Command {
	var history bool

	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Show the current balance",
		Long: `Show the balance of the remote ledger including transactions still
waiting in the local queue. When the ledger cannot be listed, only local
entries are counted and the result is marked offline.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, app *App, out *OutputFormatter) error {
				return runBalance(ctx, app, out, history)
			})
		},
	}

	cmd.Flags().BoolVar(&history, "history", false, "include the running balance")

	return cmd
}

func runBalance(ctx context.Context, app *App, out *OutputFormatter, history bool) error {
	sum, err := app.View.Summary(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "compute balance", err)
	}

	res := BalanceResult{Total: sum.Total, Count: sum.Count, Pending: sum.Pending, Offline: sum.Offline}
	if history {
		res.Points = sum.Points
	}

	return out.Emit(res, func(w io.Writer) error {
		suffix := ""
		if res.Offline {
			suffix = " (offline, local entries only)"
		}
		if _, err := fmt.Fprintf(w, "balance: %s over %d transactions, %d pending%s\n",
			core.FormatAmount(res.Total), res.Count, res.Pending, suffix); err != nil {
			return err
		}
		for _, p := range res.Points {
			if _, err := fmt.Fprintf(w, "  %s %s\n", p.Date, core.FormatAmount(p.Total)); err != nil {
				return err
			}
		}
		return nil
	})
}
