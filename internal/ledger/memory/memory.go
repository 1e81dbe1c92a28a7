package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"budget/internal/core"
	"budget/internal/ledger"
)

var errOffline = errors.New("ledger offline")

// Store is an in-process remote ledger. Appends are idempotent by
// transaction date, and outages can be simulated.
type Store struct {
	mu        sync.Mutex
	available bool
	failNext  int
	appends   int
	items     []core.Transaction
	index     map[string]int
}

var _ ledger.Ledger = (*Store)(nil)

func New(seed ...core.Transaction) *Store {
	s := &Store{available: true, index: map[string]int{}}
	for _, t := range seed {
		s.put(t)
	}
	return s
}

// Append records t unless a transaction with the same date already exists.
func (s *Store) Append(ctx context.Context, t core.Transaction) error {
	if err := ctx.Err(); err != nil {
		return ledger.Unavailable("append", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appends++

	if !s.available {
		return ledger.Unavailable("append", errOffline)
	}
	if s.failNext > 0 {
		s.failNext--
		return ledger.Unavailable("append", errOffline)
	}
	if err := t.Validate(); err != nil {
		return ledger.Rejected("append", err.Error())
	}
	s.put(t)
	return nil
}

// List returns a copy of the stored transactions in insertion order.
func (s *Store) List(ctx context.Context) ([]core.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, ledger.Unavailable("list", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.available {
		return nil, ledger.Unavailable("list", errOffline)
	}
	return append([]core.Transaction(nil), s.items...), nil
}

// SetAvailable toggles a simulated outage.
func (s *Store) SetAvailable(ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.available = ok
}

// FailNext makes the next n appends fail.
func (s *Store) FailNext(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = n
}

// Appends counts Append calls, failed ones included.
func (s *Store) Appends() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appends
}

// Len returns the number of stored transactions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Get looks a transaction up by its id.
func (s *Store) Get(id string) (core.Transaction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[id]
	if !ok {
		return core.Transaction{}, false
	}
	return s.items[i], true
}

func (s *Store) put(t core.Transaction) {
	id := t.ID()
	if _, ok := s.index[id]; ok {
		return
	}
	s.index[id] = len(s.items)
	s.items = append(s.items, t)
}

func (s *Store) String() string {
	return fmt.Sprintf("memory ledger (%d transactions)", s.Len())
}
