package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"budget/internal/core"
)

// SubmitResult is the JSON payload of the submit command.
type SubmitResult struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Value  int64  `json:"value"`
	Queued bool   `json:"queued"`
}

type submitOptions struct {
	name  string
	value string
	date  string
	debit bool
}

// NewSubmitCommand creates the submit command.
func NewSubmitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &submitOptions{}

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Record a transaction",
		Long: `Record a transaction in the remote ledger.

If the ledger cannot be reached the transaction is stored locally and
reported as queued; it is delivered by the next sync.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, app *App, out *OutputFormatter) error {
				return runSubmit(ctx, app, out, opts)
			})
		},
	}

	cmd.Flags().StringVarP(&opts.name, "name", "n", "", "transaction description")
	cmd.Flags().StringVarP(&opts.value, "value", "a", "", "signed integer amount")
	cmd.Flags().StringVar(&opts.date, "date", "", "RFC 3339 timestamp (defaults to now)")
	cmd.Flags().BoolVarP(&opts.debit, "debit", "d", false, "treat the amount as an expense")

	return cmd
}

func runSubmit(ctx context.Context, app *App, out *OutputFormatter, opts *submitOptions) error {
	draft := core.Draft{Name: opts.name, Value: opts.value}
	if opts.debit {
		draft = draft.Debit()
	}
	if opts.date != "" {
		d, err := time.Parse(time.RFC3339Nano, opts.date)
		if err != nil {
			return WrapExitError(ExitFailure, "invalid --date", err)
		}
		draft.Date = d
	}

	rec, err := app.Gateway.Submit(ctx, draft)
	switch {
	case errors.Is(err, core.ErrValidation):
		return WrapExitError(ExitFailure, "transaction rejected", err)
	case err != nil:
		return WrapExitError(ExitCommandError, "transaction not saved", err)
	}

	t := rec.Transaction
	res := SubmitResult{ID: t.ID(), Name: t.Name, Value: t.Value, Queued: rec.Queued}
	return out.Emit(res, func(w io.Writer) error {
		state := "recorded"
		if rec.Queued {
			state = "queued for sync"
		}
		_, err := fmt.Fprintf(w, "%s %s %s (%s)\n", res.ID, res.Name, core.FormatAmount(res.Value), state)
		return err
	})
}
