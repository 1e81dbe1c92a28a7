package backend

import (
	"context"
	"fmt"
	"log/slog"

	"budget/internal/ledger/amqp"
	"budget/internal/ledger/httpapi"
	"budget/internal/ledger/sheets"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new ledger factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateLedger implements Factory.CreateLedger
func (f *DefaultFactory) CreateLedger(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case HTTPBackend:
		return f.createHTTPLedger(config)
	case SheetsBackend:
		return f.createSheetsLedger(ctx, config)
	case AMQPBackend:
		return f.createAMQPLedger(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createHTTPLedger(config Config) (*Result, error) {
	client, err := httpapi.New(config.URL, config.Timeout, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ledger client: %w", err)
	}

	f.logger.Info("Initialized HTTP ledger", "url", config.URL, "timeout", config.Timeout)

	return &Result{Appender: client, Lister: client}, nil
}

func (f *DefaultFactory) createSheetsLedger(ctx context.Context, config Config) (*Result, error) {
	l, err := sheets.New(ctx, sheets.Config{
		SpreadsheetID:   config.GoogleSpreadsheetID,
		SheetName:       config.GoogleSheetName,
		CredentialsJSON: config.GoogleServiceAccountJSON,
		CredentialsFile: config.GoogleServiceAccountFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets ledger: %w", err)
	}

	f.logger.Info("Initialized Google Sheets ledger")

	return &Result{Appender: l, Lister: l}, nil
}

func (f *DefaultFactory) createAMQPLedger(config Config) (*Result, error) {
	p, err := amqp.NewPublisher(amqp.Config{
		URL:      config.AMQPURL,
		Exchange: config.AMQPExchange,
		Queue:    config.AMQPQueue,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize AMQP ledger: %w", err)
	}

	f.logger.Info("Initialized AMQP ledger",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)

	return &Result{Appender: p, Cleanup: p.Close}, nil
}
