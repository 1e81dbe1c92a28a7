package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"budget/internal/core"
	"budget/internal/storage"
)

var coffeeDate = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func openQueue(t *testing.T) (*storage.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "queue.db")
	s, err := storage.Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, path
}

func entries(t *testing.T, q Queue, status core.Status) []core.QueuedEntry {
	t.Helper()
	var out []core.QueuedEntry
	for e, err := range q.ListByStatus(context.Background(), status) {
		if err != nil {
			t.Fatalf("list %s: %v", status, err)
		}
		out = append(out, e)
	}
	return out
}

func mustEnqueue(t *testing.T, q Queue, tx core.Transaction) {
	t.Helper()
	if err := q.Enqueue(context.Background(), core.NewQueuedEntry(tx, tx.Date)); err != nil {
		t.Fatalf("enqueue %s: %v", tx.ID(), err)
	}
}

func tx(name string, value int64, d time.Time) core.Transaction {
	return core.Transaction{Name: name, Value: value, Date: d}
}
