// Package ledger defines the ports to the authoritative remote store of
// confirmed transactions.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"budget/internal/core"
)

// Ports for outbound adapters.
type (
	// Appender durably records a transaction remotely. Append either succeeds
	// as a whole or returns an error wrapping ErrRemoteUnavailable.
	Appender interface {
		Append(ctx context.Context, t core.Transaction) error
	}

	// Lister returns every transaction the remote ledger holds.
	Lister interface {
		List(ctx context.Context) ([]core.Transaction, error)
	}

	// Ledger is a remote store that can be both written and read.
	Ledger interface {
		Appender
		Lister
	}
)

var (
	ErrRemoteUnavailable = errors.New("remote ledger unavailable")
	// ErrRejected marks a server-side validation rejection. It always comes
	// wrapped together with ErrRemoteUnavailable.
	ErrRejected = errors.New("rejected by remote ledger")
	// ErrListUnsupported is returned by ledgers that are write-only.
	ErrListUnsupported = errors.New("remote ledger does not support listing")
)

// Unavailable wraps err so that errors.Is(result, ErrRemoteUnavailable) holds.
func Unavailable(op string, err error) error {
	if errors.Is(err, ErrRemoteUnavailable) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrRemoteUnavailable, err)
}

// Rejected builds a validation rejection with the server's reason.
func Rejected(op, reason string) error {
	return fmt.Errorf("%s: %w: %w: %s", op, ErrRemoteUnavailable, ErrRejected, reason)
}
