package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"budget/internal/core"
	"budget/internal/ledger"
	"budget/internal/log"
	"budget/internal/storage"
	"budget/internal/trace"
)

// ReconcilerConfig holds configuration for the sync reconciler
type ReconcilerConfig struct {
	// PollInterval is how often a pass runs while started (default: 30s)
	PollInterval time.Duration

	// BatchSize caps the entries attempted per pass, 0 means no cap (default: 100)
	BatchSize int

	// AppendTimeout bounds each remote append (default: 5s)
	AppendTimeout time.Duration

	// CleanupInterval is how often synced entries are pruned (default: 1h)
	CleanupInterval time.Duration

	// PruneAfter is how long synced entries are kept, 0 keeps them forever
	PruneAfter time.Duration
}

// DefaultReconcilerConfig returns sensible defaults
func DefaultReconcilerConfig() ReconcilerConfig {
	return ReconcilerConfig{
		PollInterval:    30 * time.Second,
		BatchSize:       100,
		AppendTimeout:   5 * time.Second,
		CleanupInterval: time.Hour,
	}
}

// PassResult summarises one reconciliation pass
type PassResult struct {
	Attempted int // pending entries read
	Synced    int // appended and marked synced
	Failed    int // left pending for the next pass
	Vanished  int // appended but gone from the store before marking
	Duration  time.Duration
}

// SyncReconciler drains pending entries from the local queue into the remote ledger
type SyncReconciler struct {
	queue  Queue
	remote ledger.Appender
	config ReconcilerConfig
	now    func() time.Time
	onPass func(PassResult)
	logger *log.Logger

	passMu sync.Mutex

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	trigger chan struct{}
}

// ReconcilerOption configures a SyncReconciler
type ReconcilerOption func(*SyncReconciler)

// WithReconcilerClock sets the clock used for pruning cutoffs and pass timing
func WithReconcilerClock(now func() time.Time) ReconcilerOption {
	return func(r *SyncReconciler) {
		if now != nil {
			r.now = now
		}
	}
}

// WithPassHook registers fn to run after each pass that synced at least one entry
func WithPassHook(fn func(PassResult)) ReconcilerOption {
	return func(r *SyncReconciler) {
		r.onPass = fn
	}
}

// WithReconcilerLogger sets the logger
func WithReconcilerLogger(l *log.Logger) ReconcilerOption {
	return func(r *SyncReconciler) {
		if l != nil {
			r.logger = l.WithComponent(log.ComponentReconciler)
		}
	}
}

func NewSyncReconciler(queue Queue, remote ledger.Appender, config ReconcilerConfig, opts ...ReconcilerOption) *SyncReconciler {
	r := &SyncReconciler{
		queue:   queue,
		remote:  remote,
		config:  config,
		now:     time.Now,
		logger:  log.FromContext(context.Background()).WithComponent(log.ComponentReconciler),
		trigger: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconcile runs one pass: every pending entry is appended to the remote
// ledger independently and marked synced on success. Failed entries stay
// pending. Concurrent calls are serialised.
func (r *SyncReconciler) Reconcile(ctx context.Context) (PassResult, error) {
	r.passMu.Lock()
	defer r.passMu.Unlock()

	start := r.now()
	var res PassResult

	for entry, err := range r.queue.ListByStatus(ctx, core.PendingSync) {
		if err != nil {
			res.Duration = r.now().Sub(start)
			return res, fmt.Errorf("list pending entries: %w", err)
		}
		if err := ctx.Err(); err != nil {
			res.Duration = r.now().Sub(start)
			return res, err
		}
		if r.config.BatchSize > 0 && res.Attempted >= r.config.BatchSize {
			break
		}
		res.Attempted++
		r.syncEntry(ctx, entry, &res)
	}

	res.Duration = r.now().Sub(start)

	if res.Attempted > 0 {
		fields := log.NewFields().
			WithOperation(log.OpSync).
			WithPass(res.Attempted, res.Synced, res.Failed)
		fields[log.FieldDuration] = res.Duration.Milliseconds()
		r.logger.InfoContext(ctx, "Reconciliation pass finished", fields.ToSlice()...)
	}
	if res.Synced > 0 && r.onPass != nil {
		r.onPass(res)
	}

	return res, nil
}

func (r *SyncReconciler) syncEntry(ctx context.Context, entry core.QueuedEntry, res *PassResult) {
	t, err := entry.Transaction()
	if err != nil {
		res.Failed++
		r.logger.ErrorContext(ctx, "Queued entry is unreadable",
			log.FieldTransactionID, entry.ID,
			log.FieldError, err)
		return
	}

	requestID := trace.NewRequestID()
	ctx = trace.WithRequestID(ctx, requestID)
	if err := r.append(ctx, t); err != nil {
		res.Failed++
		r.logger.WarnContext(ctx, "Remote append failed, entry stays pending",
			log.FieldTransactionID, entry.ID,
			log.FieldRequestID, requestID,
			log.FieldError, err)
		return
	}

	if err := r.queue.MarkSynced(ctx, entry.ID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			res.Vanished++
			r.logger.WarnContext(ctx, "Entry vanished before it could be marked synced",
				log.FieldTransactionID, entry.ID)
			return
		}
		// The remote already has it; the next pass appends it again.
		res.Failed++
		r.logger.ErrorContext(ctx, "Failed to mark entry synced",
			log.FieldTransactionID, entry.ID,
			log.FieldError, err)
		return
	}

	res.Synced++
	r.logger.DebugContext(ctx, "Entry synced", log.FieldTransactionID, entry.ID)
}

func (r *SyncReconciler) append(ctx context.Context, t core.Transaction) error {
	if r.config.AppendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.AppendTimeout)
		defer cancel()
	}
	return r.remote.Append(ctx, t)
}

// Prune deletes synced entries older than PruneAfter. It does nothing when
// PruneAfter is zero or the queue cannot prune.
func (r *SyncReconciler) Prune(ctx context.Context) (int64, error) {
	if r.config.PruneAfter <= 0 {
		return 0, nil
	}
	p, ok := r.queue.(Pruner)
	if !ok {
		return 0, nil
	}
	n, err := p.PruneSynced(ctx, r.now().Add(-r.config.PruneAfter))
	if err != nil {
		return 0, fmt.Errorf("prune synced entries: %w", err)
	}
	if n > 0 {
		r.logger.InfoContext(ctx, "Pruned synced entries", log.FieldOperation, log.OpPrune, "removed", n)
	}
	return n, nil
}

// Trigger requests a pass as soon as possible. It never blocks; requests
// made while one is already waiting are coalesced.
func (r *SyncReconciler) Trigger() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

// Start runs a pass immediately and then keeps reconciling on every poll
// tick and trigger until Stop is called or ctx ends. Returns an error if
// already running.
func (r *SyncReconciler) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("sync reconciler is already running")
	}
	r.running = true
	stopCh, doneCh := make(chan struct{}), make(chan struct{})
	r.stopCh, r.doneCh = stopCh, doneCh
	r.mu.Unlock()

	go r.runLoop(ctx, stopCh, doneCh)

	r.logger.InfoContext(ctx, "Sync reconciler started",
		"poll_interval", r.config.PollInterval,
		"batch_size", r.config.BatchSize,
		"prune_after", r.config.PruneAfter)

	return nil
}

// Stop signals the loop to exit and waits for the current pass to finish.
func (r *SyncReconciler) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	// stopCh is only closed while holding r.mu.
	select {
	case <-r.stopCh:
	default:
		close(r.stopCh)
	}
	doneCh := r.doneCh
	r.mu.Unlock()

	select {
	case <-doneCh:
		r.logger.InfoContext(ctx, "Sync reconciler stopped gracefully")
	case <-ctx.Done():
		r.logger.WarnContext(ctx, "Sync reconciler stop timed out")
		return ctx.Err()
	}

	return nil
}

// IsRunning returns whether the loop is active
func (r *SyncReconciler) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Done is closed when the loop started by Start exits
func (r *SyncReconciler) Done() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.doneCh
}

func (r *SyncReconciler) runLoop(ctx context.Context, stopCh <-chan struct{}, doneCh chan struct{}) {
	defer func() {
		r.mu.Lock()
		if r.doneCh == doneCh {
			r.running = false
		}
		r.mu.Unlock()
		close(doneCh)
	}()

	interval := r.config.PollInterval
	if interval <= 0 {
		interval = DefaultReconcilerConfig().PollInterval
	}
	pollTicker := time.NewTicker(interval)
	defer pollTicker.Stop()

	var cleanup <-chan time.Time
	if r.config.PruneAfter > 0 {
		cleanupInterval := r.config.CleanupInterval
		if cleanupInterval <= 0 {
			cleanupInterval = DefaultReconcilerConfig().CleanupInterval
		}
		cleanupTicker := time.NewTicker(cleanupInterval)
		defer cleanupTicker.Stop()
		cleanup = cleanupTicker.C
	}

	r.runPass(ctx)

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-pollTicker.C:
			r.runPass(ctx)
		case <-r.trigger:
			r.runPass(ctx)
		case <-cleanup:
			if _, err := r.Prune(ctx); err != nil {
				r.logger.ErrorContext(ctx, "Failed to prune synced entries", log.FieldError, err)
			}
		}
	}
}

func (r *SyncReconciler) runPass(ctx context.Context) {
	if _, err := r.Reconcile(ctx); err != nil && ctx.Err() == nil {
		r.logger.ErrorContext(ctx, "Reconciliation pass failed", log.FieldError, err)
	}
}
