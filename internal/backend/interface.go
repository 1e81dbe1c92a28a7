package backend

import (
	"context"
	"time"

	"budget/internal/ledger"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Result contains the remote ledger and an optional cleanup function.
// Lister is nil for write-only ledgers.
type Result struct {
	Appender ledger.Appender
	Lister   ledger.Lister
	Cleanup  CleanupFunc
}

// Factory creates remote ledgers based on configuration
type Factory interface {
	CreateLedger(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for ledger creation
type Config struct {
	Type BackendType

	// HTTP specific
	URL     string
	Timeout time.Duration

	// AMQP specific
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets specific
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
}

// BackendType represents the type of remote ledger
type BackendType string

const (
	HTTPBackend   BackendType = "http"
	SheetsBackend BackendType = "sheets"
	AMQPBackend   BackendType = "amqp"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case HTTPBackend, SheetsBackend, AMQPBackend:
		return true
	default:
		return false
	}
}
