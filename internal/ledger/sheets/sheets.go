// Package sheets keeps the remote ledger in a Google Sheets tab with one
// row per transaction: date (natural key), name, value.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"

	"budget/internal/core"
	"budget/internal/ledger"

	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Config selects the spreadsheet and the credentials used to reach it.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

// valuesAPI is the slice of the Sheets values API the ledger uses.
type valuesAPI interface {
	Get(ctx context.Context, rng string) ([][]any, error)
	Append(ctx context.Context, rng string, rows [][]any) error
}

type Ledger struct {
	values valuesAPI
	sheet  string
}

var _ ledger.Ledger = (*Ledger)(nil)

// New connects to Google Sheets with service account credentials.
func New(ctx context.Context, cfg Config) (*Ledger, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	sheet := strings.TrimSpace(cfg.SheetName)
	if sheet == "" {
		sheet = "Transactions"
	}

	credentialsJSON := []byte(cfg.CredentialsJSON)
	if len(credentialsJSON) == 0 {
		if cfg.CredentialsFile == "" {
			return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
		}
		var err error
		credentialsJSON, err = os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets ledger ready",
		"spreadsheet_id", cfg.SpreadsheetID,
		"sheet", sheet)

	return &Ledger{
		values: &serviceValues{svc: svc, spreadsheetID: cfg.SpreadsheetID},
		sheet:  sheet,
	}, nil
}

// Append adds a row for t unless a row with the same date already exists.
func (l *Ledger) Append(ctx context.Context, t core.Transaction) error {
	if err := t.Validate(); err != nil {
		return ledger.Rejected("append", err.Error())
	}

	id := t.ID()
	keys, err := l.values.Get(ctx, l.sheet+"!A:A")
	if err != nil {
		return classify("append", err)
	}
	for _, row := range keys {
		if len(row) > 0 && strings.TrimSpace(fmt.Sprint(row[0])) == id {
			slog.InfoContext(ctx, "Transaction already in sheet, skipping append", "id", id)
			return nil
		}
	}

	row := []any{id, t.Name, t.Value}
	if err := l.values.Append(ctx, l.sheet+"!A:C", [][]any{row}); err != nil {
		return classify("append", err)
	}
	return nil
}

// List reads every data row of the sheet. Rows whose first cell is not a
// transaction date (headers, notes) are skipped.
func (l *Ledger) List(ctx context.Context) ([]core.Transaction, error) {
	rows, err := l.values.Get(ctx, l.sheet+"!A:C")
	if err != nil {
		return nil, classify("list", err)
	}
	return parseRows(rows), nil
}

func parseRows(rows [][]any) []core.Transaction {
	out := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		if len(row) < 3 {
			continue
		}
		date, err := core.ParseID(strings.TrimSpace(fmt.Sprint(row[0])))
		if err != nil {
			continue
		}
		value, ok := cellInt(row[2])
		if !ok {
			continue
		}
		out = append(out, core.Transaction{
			Name:  strings.TrimSpace(fmt.Sprint(row[1])),
			Value: value,
			Date:  date,
		})
	}
	return out
}

func cellInt(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		return i, err == nil
	default:
		return 0, false
	}
}

// classify maps a Sheets API error onto the ledger error taxonomy.
func classify(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusBadRequest {
		return ledger.Rejected(op, gerr.Message)
	}
	return ledger.Unavailable(op, err)
}

type serviceValues struct {
	svc           *gsheet.Service
	spreadsheetID string
}

func (s *serviceValues) Get(ctx context.Context, rng string) ([][]any, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}

func (s *serviceValues) Append(ctx context.Context, rng string, rows [][]any) error {
	_, err := s.svc.Spreadsheets.Values.Append(s.spreadsheetID, rng, &gsheet.ValueRange{Values: rows}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append to %s: %w", rng, err)
	}
	return nil
}
