package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxNameLength is the longest accepted name, in characters.
const MaxNameLength = 200

const (
	PendingSync Status = "pending_sync"
	Synced      Status = "synced"
)

type (
	// Status is the sync state of a locally queued transaction.
	Status string

	// Transaction is a signed monetary record. Positive values are credits,
	// negative values are debits.
	Transaction struct {
		Name  string
		Value int64
		Date  time.Time
	}

	// Draft is a transaction as captured from user input, before parsing.
	Draft struct {
		Name  string
		Value string
		Date  time.Time
	}

	// QueuedEntry wraps a Transaction that could not be written to the remote
	// ledger and is waiting in the local store.
	QueuedEntry struct {
		ID       string // equals Transaction.ID()
		Status   Status
		Name     string
		Value    int64
		QueuedAt time.Time
		SyncedAt time.Time // zero while pending
	}
)

var (
	ErrValidation   = errors.New("validation error")
	ErrEmptyName    = fmt.Errorf("%w: empty name", ErrValidation)
	ErrNameTooLong  = fmt.Errorf("%w: name too long (max 200 characters)", ErrValidation)
	ErrInvalidValue = fmt.Errorf("%w: value is not an integer", ErrValidation)
	ErrZeroValue    = fmt.Errorf("%w: value must not be zero", ErrValidation)
	ErrMissingDate  = fmt.Errorf("%w: missing date", ErrValidation)
	ErrInvalidID    = fmt.Errorf("%w: invalid transaction id", ErrValidation)
	ErrInvalidState = errors.New("invalid status")
)

// IDLayout formats transaction dates into their natural key.
const IDLayout = time.RFC3339Nano

// ID returns the natural key of the transaction: its date in UTC, RFC 3339.
func (t Transaction) ID() string {
	return FormatID(t.Date)
}

// FormatID renders a date the way transaction keys are stored.
func FormatID(d time.Time) string {
	return d.UTC().Format(IDLayout)
}

// ParseID is the inverse of FormatID.
func ParseID(id string) (time.Time, error) {
	d, err := time.Parse(IDLayout, id)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return d.UTC(), nil
}

func (t Transaction) Validate() error {
	name := strings.TrimSpace(t.Name)
	if name == "" {
		return ErrEmptyName
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return ErrNameTooLong
	}
	if t.Value == 0 {
		return ErrZeroValue
	}
	if t.Date.IsZero() {
		return ErrMissingDate
	}
	return nil
}

// IsCredit reports whether the transaction adds funds.
func (t Transaction) IsCredit() bool {
	return t.Value > 0
}

// Parse validates the draft and converts it into a Transaction.
func (d Draft) Parse() (Transaction, error) {
	name := strings.TrimSpace(d.Name)
	if name == "" {
		return Transaction{}, ErrEmptyName
	}
	value, err := ParseAmount(d.Value)
	if err != nil {
		return Transaction{}, err
	}
	t := Transaction{Name: name, Value: value, Date: d.Date.UTC()}
	if err := t.Validate(); err != nil {
		return Transaction{}, err
	}
	return t, nil
}

// Credit returns a copy of the draft whose amount adds funds.
func (d Draft) Credit() Draft {
	d.Value = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(d.Value), "+"), "-")
	return d
}

// Debit returns a copy of the draft whose amount withdraws funds.
func (d Draft) Debit() Draft {
	d = d.Credit()
	if d.Value != "" {
		d.Value = "-" + d.Value
	}
	return d
}

func (s Status) String() string {
	return string(s)
}

func (s Status) IsValid() bool {
	switch s {
	case PendingSync, Synced:
		return true
	default:
		return false
	}
}

// ParseStatus accepts the stored form of a status.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.TrimSpace(s))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidState, s)
	}
	return st, nil
}

// NewQueuedEntry wraps t as a pending entry.
func NewQueuedEntry(t Transaction, queuedAt time.Time) QueuedEntry {
	return QueuedEntry{
		ID:       t.ID(),
		Status:   PendingSync,
		Name:     t.Name,
		Value:    t.Value,
		QueuedAt: queuedAt.UTC(),
	}
}

// Transaction rebuilds the record the entry was created from.
func (e QueuedEntry) Transaction() (Transaction, error) {
	d, err := ParseID(e.ID)
	if err != nil {
		return Transaction{}, err
	}
	return Transaction{Name: e.Name, Value: e.Value, Date: d}, nil
}
