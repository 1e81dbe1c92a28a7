package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"budget/internal/core"
	"budget/internal/ledger"
	"budget/internal/log"
	"budget/internal/trace"
)

// ErrSubmissionLost is returned when a transaction reached neither the remote
// ledger nor the local queue. It is joined with both underlying errors.
var ErrSubmissionLost = errors.New("submission lost: remote append and local enqueue both failed")

// Receipt describes where a submitted transaction ended up
type Receipt struct {
	Transaction core.Transaction
	Queued      bool // true when held locally for a later sync
}

// GatewayConfig holds configuration for the submission gateway
type GatewayConfig struct {
	// RemoteTimeout bounds a single remote append (0 means no extra bound)
	RemoteTimeout time.Duration
}

// SubmissionGateway writes transactions to the remote ledger and falls back
// to the local queue when the remote write fails for any reason.
type SubmissionGateway struct {
	remote    ledger.Appender
	queue     Queue
	config    GatewayConfig
	now       func() time.Time
	onReached func()
	logger    *log.Logger
}

// GatewayOption configures a SubmissionGateway
type GatewayOption func(*SubmissionGateway)

// WithGatewayClock sets the clock used for missing dates and queue timestamps
func WithGatewayClock(now func() time.Time) GatewayOption {
	return func(g *SubmissionGateway) {
		if now != nil {
			g.now = now
		}
	}
}

// WithReconnectHook registers fn to run after every successful direct append.
// It is typically wired to SyncReconciler.Trigger.
func WithReconnectHook(fn func()) GatewayOption {
	return func(g *SubmissionGateway) {
		g.onReached = fn
	}
}

// WithGatewayLogger sets the logger
func WithGatewayLogger(l *log.Logger) GatewayOption {
	return func(g *SubmissionGateway) {
		if l != nil {
			g.logger = l.WithComponent(log.ComponentGateway)
		}
	}
}

func NewSubmissionGateway(remote ledger.Appender, queue Queue, config GatewayConfig, opts ...GatewayOption) *SubmissionGateway {
	g := &SubmissionGateway{
		remote: remote,
		queue:  queue,
		config: config,
		now:    time.Now,
		logger: log.FromContext(context.Background()).WithComponent(log.ComponentGateway),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Submit parses the draft and delivers it. A zero Date is replaced by the
// gateway's clock. Validation failures return before any I/O.
func (g *SubmissionGateway) Submit(ctx context.Context, d core.Draft) (Receipt, error) {
	if d.Date.IsZero() {
		d.Date = g.now()
	}
	t, err := d.Parse()
	if err != nil {
		return Receipt{}, fmt.Errorf("submit: %w", err)
	}
	return g.deliver(ctx, t)
}

// SubmitTransaction delivers an already parsed transaction.
func (g *SubmissionGateway) SubmitTransaction(ctx context.Context, t core.Transaction) (Receipt, error) {
	if err := t.Validate(); err != nil {
		return Receipt{}, fmt.Errorf("submit: %w", err)
	}
	return g.deliver(ctx, t)
}

func (g *SubmissionGateway) deliver(ctx context.Context, t core.Transaction) (Receipt, error) {
	id := t.ID()
	ctx, requestID := trace.Ensure(ctx)

	remoteErr := g.append(ctx, t)
	if remoteErr == nil {
		g.logger.InfoContext(ctx, "Transaction appended to remote ledger",
			log.FieldOperation, log.OpSubmit,
			log.FieldTransactionID, id,
			log.FieldRequestID, requestID,
			log.FieldValue, t.Value)
		if g.onReached != nil {
			g.onReached()
		}
		return Receipt{Transaction: t}, nil
	}

	g.logger.WarnContext(ctx, "Remote append failed, queueing locally",
		log.FieldTransactionID, id,
		log.FieldRequestID, requestID,
		log.FieldError, remoteErr)

	// The caller's deadline may already be spent on the remote attempt; the
	// local write must still happen.
	entry := core.NewQueuedEntry(t, g.now())
	if err := g.queue.Enqueue(context.WithoutCancel(ctx), entry); err != nil {
		g.logger.ErrorContext(ctx, "Transaction could not be queued",
			log.NewFields().
				WithOperation(log.OpEnqueue).
				WithTransaction(id, t.Name, t.Value).
				WithError(err).
				ToSlice()...)
		return Receipt{Transaction: t}, errors.Join(ErrSubmissionLost, err, remoteErr)
	}

	g.logger.InfoContext(ctx, "Transaction queued for sync",
		log.NewFields().
			WithOperation(log.OpEnqueue).
			WithTransaction(id, t.Name, t.Value).
			WithRequestID(requestID).
			ToSlice()...)

	return Receipt{Transaction: t, Queued: true}, nil
}

func (g *SubmissionGateway) append(ctx context.Context, t core.Transaction) error {
	if g.remote == nil {
		return ledger.Unavailable("append", errors.New("no remote ledger configured"))
	}
	if g.config.RemoteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.config.RemoteTimeout)
		defer cancel()
	}
	if err := g.remote.Append(ctx, t); err != nil {
		return err
	}
	return nil
}
