package services

import (
	"context"
	"iter"
	"time"

	"budget/internal/core"
)

// Queue is the local durable store used as the fallback for remote writes
type Queue interface {
	Enqueue(ctx context.Context, e core.QueuedEntry) error
	ListByStatus(ctx context.Context, status core.Status) iter.Seq2[core.QueuedEntry, error]
	MarkSynced(ctx context.Context, id string) error
}

// Pruner is implemented by queues that can drop old synced entries
type Pruner interface {
	PruneSynced(ctx context.Context, cutoff time.Time) (int64, error)
}
