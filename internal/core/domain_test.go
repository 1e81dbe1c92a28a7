package core

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestTransactionID(t *testing.T) {
	tx := Transaction{Name: "Coffee", Value: -5, Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	if got := tx.ID(); got != "2024-01-01T00:00:00Z" {
		t.Fatalf("ID() = %q", got)
	}

	rome := time.FixedZone("CET", 3600)
	local := Transaction{Name: "x", Value: 1, Date: time.Date(2024, 1, 1, 1, 0, 0, 500, rome)}
	if got := local.ID(); got != "2024-01-01T00:00:00.0000005Z" {
		t.Fatalf("ID() should be normalised to UTC, got %q", got)
	}
}

func TestParseIDRoundTrip(t *testing.T) {
	d := time.Date(2024, 3, 9, 12, 30, 1, 123000000, time.UTC)
	got, err := ParseID(FormatID(d))
	if err != nil {
		t.Fatalf("ParseID: %v", err)
	}
	if !got.Equal(d) {
		t.Fatalf("got %v, want %v", got, d)
	}
	if _, err := ParseID("yesterday"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDraftParse(t *testing.T) {
	date := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		name    string
		draft   Draft
		want    int64
		wantErr error
	}{
		{"credit", Draft{Name: "Salary", Value: "100", Date: date}, 100, nil},
		{"debit", Draft{Name: "Coffee", Value: "-5", Date: date}, -5, nil},
		{"trimmed", Draft{Name: "  Rent ", Value: " 7 ", Date: date}, 7, nil},
		{"empty name", Draft{Name: "", Value: "10", Date: date}, 0, ErrEmptyName},
		{"blank name", Draft{Name: "   ", Value: "10", Date: date}, 0, ErrEmptyName},
		{"zero value", Draft{Name: "x", Value: "0", Date: date}, 0, ErrZeroValue},
		{"negative zero", Draft{Name: "x", Value: "-0", Date: date}, 0, ErrZeroValue},
		{"non numeric", Draft{Name: "x", Value: "ten", Date: date}, 0, ErrInvalidValue},
		{"empty value", Draft{Name: "x", Value: "", Date: date}, 0, ErrInvalidValue},
		{"missing date", Draft{Name: "x", Value: "1"}, 0, ErrMissingDate},
		{"multibyte name at limit", Draft{Name: strings.Repeat("€", MaxNameLength), Value: "1", Date: date}, 1, nil},
		{"name over limit", Draft{Name: strings.Repeat("x", MaxNameLength+1), Value: "1", Date: date}, 0, ErrNameTooLong},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.draft.Parse()
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				if !errors.Is(err, ErrValidation) {
					t.Fatalf("expected error to be a validation error: %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Value != tc.want {
				t.Fatalf("value = %d, want %d", got.Value, tc.want)
			}
		})
	}
}

func TestDraftSign(t *testing.T) {
	d := Draft{Name: "x", Value: "5"}
	if got := d.Debit().Value; got != "-5" {
		t.Fatalf("Debit() = %q", got)
	}
	if got := d.Debit().Debit().Value; got != "-5" {
		t.Fatalf("Debit() should not flip twice, got %q", got)
	}
	if got := (Draft{Value: "-5"}).Credit().Value; got != "5" {
		t.Fatalf("Credit() = %q", got)
	}
	if got := (Draft{}).Debit().Value; got != "" {
		t.Fatalf("Debit() of empty value = %q", got)
	}
}

func TestParseStatus(t *testing.T) {
	for _, s := range []Status{PendingSync, Synced} {
		got, err := ParseStatus(s.String())
		if err != nil || got != s {
			t.Fatalf("ParseStatus(%q) = %q, %v", s, got, err)
		}
	}
	if _, err := ParseStatus("LocalStored"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestQueuedEntryTransaction(t *testing.T) {
	tx := Transaction{Name: "Coffee", Value: -5, Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	e := NewQueuedEntry(tx, time.Now())
	if e.ID != "2024-01-01T00:00:00Z" || e.Status != PendingSync {
		t.Fatalf("unexpected entry %+v", e)
	}
	back, err := e.Transaction()
	if err != nil {
		t.Fatalf("Transaction(): %v", err)
	}
	if back.Name != tx.Name || back.Value != tx.Value || !back.Date.Equal(tx.Date) {
		t.Fatalf("got %+v, want %+v", back, tx)
	}
}
