package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"budget/internal/core"

	_ "modernc.org/sqlite"
)

var (
	ErrStoreInit    = errors.New("local store initialization failed")
	ErrDuplicateKey = errors.New("duplicate key")
	ErrNotFound     = errors.New("entry not found")
)

// Timestamps are stored fixed-width so they compare correctly as text.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

const defaultPageSize = 100

// Store is the on-device durable queue of transactions waiting for the
// remote ledger. It is the only writer of an entry's status.
type Store struct {
	db       *sql.DB
	pageSize int
	now      func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithPageSize sets how many rows ListByStatus reads per query.
func WithPageSize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithClock overrides the time source used for queued_at and synced_at.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Open opens (or creates) the store at dbPath and initializes its schema.
// Every failure wraps ErrStoreInit: the application cannot run without it.
func Open(dbPath string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("%w: create db directory: %w", ErrStoreInit, err)
	}

	if err := InitializeSchema(dbPath); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreInit, err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite database: %w", ErrStoreInit, err)
	}

	// SQLite has a single writer; one connection serializes enqueue and
	// markSynced without SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: ping database: %w", ErrStoreInit, err)
	}

	s := &Store{
		db:       db,
		pageSize: defaultPageSize,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// dsn enables WAL and full fsync on commit so an entry is on disk once
// Enqueue returns.
func dsn(dbPath string) string {
	q := url.Values{}
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "synchronous(FULL)")
	return "file:" + dbPath + "?" + q.Encode()
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Enqueue inserts a new entry keyed by its ID. Entries always start out
// pending; only MarkSynced moves them to synced.
func (s *Store) Enqueue(ctx context.Context, e core.QueuedEntry) error {
	date, err := core.ParseID(e.ID)
	if err != nil {
		return fmt.Errorf("enqueue: %w", err)
	}
	if canonical := core.FormatID(date); e.ID != canonical {
		return fmt.Errorf("enqueue %s: %w: want %q", e.ID, core.ErrInvalidID, canonical)
	}
	if e.Status != core.PendingSync {
		return fmt.Errorf("enqueue %s: %w: new entries must be %s, got %q", e.ID, core.ErrInvalidState, core.PendingSync, e.Status)
	}

	queuedAt := e.QueuedAt
	if queuedAt.IsZero() {
		queuedAt = s.now()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO queued_transactions (id, status, name, value, queued_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, e.ID, string(e.Status), e.Name, e.Value, formatTime(queuedAt))
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", e.ID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("enqueue %s: rows affected: %w", e.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("enqueue %s: %w", e.ID, ErrDuplicateKey)
	}

	slog.InfoContext(ctx, "Transaction queued locally",
		"id", e.ID,
		"status", e.Status,
		"name", e.Name,
		"value", e.Value)

	return nil
}

// ListByStatus lazily yields every entry with the given status.
//
// Rows are read in pages keyed by id, so no query is open while the caller
// handles an entry and the caller may call MarkSynced from inside the loop.
// Entries changed during iteration may or may not be seen.
func (s *Store) ListByStatus(ctx context.Context, status core.Status) iter.Seq2[core.QueuedEntry, error] {
	return func(yield func(core.QueuedEntry, error) bool) {
		if !status.IsValid() {
			yield(core.QueuedEntry{}, fmt.Errorf("list by status: %w: %q", core.ErrInvalidState, status))
			return
		}

		after := ""
		for {
			page, err := s.listPage(ctx, status, after)
			if err != nil {
				yield(core.QueuedEntry{}, err)
				return
			}
			for _, e := range page {
				if !yield(e, nil) {
					return
				}
			}
			if len(page) < s.pageSize {
				return
			}
			after = page[len(page)-1].ID
		}
	}
}

func (s *Store) listPage(ctx context.Context, status core.Status, after string) ([]core.QueuedEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, status, name, value, queued_at, synced_at
		FROM queued_transactions
		WHERE status = ? AND id > ?
		ORDER BY id
		LIMIT ?
	`, string(status), after, s.pageSize)
	if err != nil {
		return nil, fmt.Errorf("list %s entries: %w", status, err)
	}
	defer rows.Close()

	page := make([]core.QueuedEntry, 0, s.pageSize)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("list %s entries: %w", status, err)
		}
		page = append(page, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list %s entries: %w", status, err)
	}
	return page, nil
}

// MarkSynced moves an entry to Synced. Marking an already synced entry
// succeeds and keeps its original synced_at.
func (s *Store) MarkSynced(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE queued_transactions
		SET status = ?, synced_at = COALESCE(synced_at, ?)
		WHERE id = ?
	`, string(core.Synced), formatTime(s.now()), id)
	if err != nil {
		return fmt.Errorf("mark %s synced: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark %s synced: rows affected: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("mark %s synced: %w", id, ErrNotFound)
	}

	slog.InfoContext(ctx, "Transaction marked as synced", "id", id)
	return nil
}

// Get returns a single entry by id.
func (s *Store) Get(ctx context.Context, id string) (core.QueuedEntry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, status, name, value, queued_at, synced_at
		FROM queued_transactions
		WHERE id = ?
	`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.QueuedEntry{}, fmt.Errorf("get %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.QueuedEntry{}, fmt.Errorf("get %s: %w", id, err)
	}
	return e, nil
}

// Counts returns the number of entries per status. Both statuses are
// always present in the result.
func (s *Store) Counts(ctx context.Context) (map[core.Status]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT status, COUNT(*)
		FROM queued_transactions
		GROUP BY status
	`)
	if err != nil {
		return nil, fmt.Errorf("count entries: %w", err)
	}
	defer rows.Close()

	counts := map[core.Status]int64{core.PendingSync: 0, core.Synced: 0}
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("count entries: %w", err)
		}
		st, err := core.ParseStatus(status)
		if err != nil {
			return nil, fmt.Errorf("count entries: %w", err)
		}
		counts[st] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("count entries: %w", err)
	}
	return counts, nil
}

// PruneSynced deletes synced entries whose sync happened before cutoff.
// Pending entries are never touched.
func (s *Store) PruneSynced(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM queued_transactions
		WHERE status = ? AND synced_at < ?
	`, string(core.Synced), formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("prune synced entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune synced entries: rows affected: %w", err)
	}
	if n > 0 {
		slog.InfoContext(ctx, "Pruned synced entries", "count", n, "cutoff", cutoff.Format(time.RFC3339))
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(sc scanner) (core.QueuedEntry, error) {
	var (
		e                core.QueuedEntry
		status, queuedAt string
		syncedAt         sql.NullString
	)
	if err := sc.Scan(&e.ID, &status, &e.Name, &e.Value, &queuedAt, &syncedAt); err != nil {
		return core.QueuedEntry{}, err
	}

	st, err := core.ParseStatus(status)
	if err != nil {
		return core.QueuedEntry{}, err
	}
	e.Status = st

	if e.QueuedAt, err = parseTime(queuedAt); err != nil {
		return core.QueuedEntry{}, fmt.Errorf("parse queued_at: %w", err)
	}
	if syncedAt.Valid {
		if e.SyncedAt, err = parseTime(syncedAt.String); err != nil {
			return core.QueuedEntry{}, fmt.Errorf("parse synced_at: %w", err)
		}
	}
	return e, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timestampLayout, s)
}
