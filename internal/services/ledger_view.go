package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"budget/internal/cache"
	"budget/internal/core"
	"budget/internal/ledger"
	"budget/internal/log"
)

const remoteListKey = "remote:list"

// Snapshot is the merged view of the remote ledger and the local queue
type Snapshot struct {
	Transactions []core.Transaction // newest first
	Pending      int                // entries only present locally, awaiting sync
	Offline      bool               // the remote ledger could not be listed
}

// Summary is the balance overview derived from a Snapshot
type Summary struct {
	Total   int64
	Count   int
	Pending int
	Offline bool
	Points  []core.Point // running balance, oldest first
}

// LedgerView serves read-through listings of the remote ledger, cached for a
// TTL, merged with transactions still waiting in the local queue.
type LedgerView struct {
	remote ledger.Lister
	queue  Queue
	cache  cache.Cache[[]core.Transaction]
	group  singleflight.Group
	logger *log.Logger
}

// NewLedgerView creates a view. remote may be nil for write-only ledgers, in
// which case only local entries are shown.
func NewLedgerView(remote ledger.Lister, queue Queue, c cache.Cache[[]core.Transaction], logger *log.Logger) *LedgerView {
	if c == nil {
		c = cache.NewLRUCache[[]core.Transaction](1, 30*time.Second)
	}
	if logger == nil {
		logger = log.FromContext(context.Background())
	}
	return &LedgerView{
		remote: remote,
		queue:  queue,
		cache:  c,
		logger: logger.WithComponent(log.ComponentView),
	}
}

// Invalidate drops the cached remote listing
func (v *LedgerView) Invalidate() {
	v.cache.Delete(remoteListKey)
	v.group.Forget(remoteListKey)
}

// Snapshot returns the merged transaction list.
//
// Online, local entries are included only while pending and not yet listed
// remotely. Offline, every local entry is included since it is all this
// process knows about.
func (v *LedgerView) Snapshot(ctx context.Context) (Snapshot, error) {
	remote, offline, err := v.remoteTransactions(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	seen := make(map[string]struct{}, len(remote))
	out := make([]core.Transaction, 0, len(remote))
	for _, t := range remote {
		seen[t.ID()] = struct{}{}
		out = append(out, t)
	}

	statuses := []core.Status{core.PendingSync}
	if offline {
		statuses = append(statuses, core.Synced)
	}

	snap := Snapshot{Offline: offline}
	for _, status := range statuses {
		for entry, err := range v.queue.ListByStatus(ctx, status) {
			if err != nil {
				return Snapshot{}, fmt.Errorf("list local %s entries: %w", status, err)
			}
			if _, ok := seen[entry.ID]; ok {
				continue
			}
			t, err := entry.Transaction()
			if err != nil {
				v.logger.WarnContext(ctx, "Skipping unreadable local entry",
					log.FieldTransactionID, entry.ID,
					log.FieldError, err)
				continue
			}
			seen[entry.ID] = struct{}{}
			out = append(out, t)
			if status == core.PendingSync {
				snap.Pending++
			}
		}
	}

	core.SortNewestFirst(out)
	snap.Transactions = out
	return snap, nil
}

// Transactions returns the merged list, newest first
func (v *LedgerView) Transactions(ctx context.Context) ([]core.Transaction, error) {
	snap, err := v.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Transactions, nil
}

// Summary computes the balance, counts and running totals of the merged list
func (v *LedgerView) Summary(ctx context.Context) (Summary, error) {
	snap, err := v.Snapshot(ctx)
	if err != nil {
		return Summary{}, err
	}
	return Summary{
		Total:   core.Total(snap.Transactions),
		Count:   len(snap.Transactions),
		Pending: snap.Pending,
		Offline: snap.Offline,
		Points:  core.RunningTotals(snap.Transactions),
	}, nil
}

// remoteTransactions returns a private copy of the remote listing. offline is
// true when the remote could not be listed; that is not an error.
func (v *LedgerView) remoteTransactions(ctx context.Context) ([]core.Transaction, bool, error) {
	if v.remote == nil {
		return nil, true, nil
	}

	if cached, ok := v.cache.Get(remoteListKey); ok {
		return append([]core.Transaction(nil), cached...), false, nil
	}

	res, err, shared := v.group.Do(remoteListKey, func() (any, error) {
		ts, err := v.remote.List(ctx)
		if err != nil {
			return nil, err
		}
		v.cache.Set(remoteListKey, ts)
		return ts, nil
	})
	if err != nil {
		if errors.Is(err, ledger.ErrRemoteUnavailable) || errors.Is(err, ledger.ErrListUnsupported) {
			v.logger.WarnContext(ctx, "Remote ledger not listable, showing local entries",
				log.FieldError, err)
			return nil, true, nil
		}
		return nil, false, fmt.Errorf("list remote ledger: %w", err)
	}

	v.logger.DebugContext(ctx, "Remote ledger listed", "shared", shared)
	return append([]core.Transaction(nil), res.([]core.Transaction)...), false, nil
}
