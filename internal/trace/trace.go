// Package trace carries request IDs through outbound ledger calls and logs
// the HTTP requests made to the remote ledger.
package trace

import (
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// HeaderRequestID is the header the request ID travels in
const HeaderRequestID = "X-Request-ID"

type contextKey struct{}

// NewRequestID creates a unique request ID for tracing
func NewRequestID() string {
	return "req_" + uuid.NewString()
}

// WithRequestID returns a copy of ctx carrying id
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// RequestID extracts the request ID from context
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(contextKey{}).(string); ok {
		return id
	}
	return ""
}

// Ensure returns ctx with a request ID, reusing one already present
func Ensure(ctx context.Context) (context.Context, string) {
	if id := RequestID(ctx); id != "" {
		return ctx, id
	}
	id := NewRequestID()
	return WithRequestID(ctx, id), id
}

// Metrics tracks outbound request metrics
type Metrics struct {
	TotalRequests  int64
	FailedRequests int64
	LastDurationMS int64
}

// Transport is an http.RoundTripper that stamps the request ID header and
// logs every request made through it.
type Transport struct {
	Base    http.RoundTripper
	total   atomic.Int64
	failed  atomic.Int64
	lastDur atomic.Int64
}

// NewTransport wraps base, or http.DefaultTransport when base is nil
func NewTransport(base http.RoundTripper) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{Base: base}
}

// RoundTrip implements http.RoundTripper
func (t *Transport) RoundTrip(r *http.Request) (*http.Response, error) {
	start := time.Now()
	ctx := r.Context()

	requestID := r.Header.Get(HeaderRequestID)
	if requestID == "" {
		requestID = RequestID(ctx)
		if requestID == "" {
			requestID = NewRequestID()
		}
		r = r.Clone(ctx)
		r.Header.Set(HeaderRequestID, requestID)
	}

	t.total.Add(1)
	resp, err := t.Base.RoundTrip(r)
	duration := time.Since(start)
	t.lastDur.Store(duration.Milliseconds())

	if err != nil {
		t.failed.Add(1)
		slog.WarnContext(ctx, "Ledger request failed",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"duration_ms", duration.Milliseconds(),
			"error", err)
		return nil, err
	}

	logLevel := slog.LevelDebug
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		logLevel = slog.LevelWarn
	} else if resp.StatusCode >= 500 {
		logLevel = slog.LevelError
		t.failed.Add(1)
	}

	slog.Log(ctx, logLevel, "Ledger request completed",
		"request_id", requestID,
		"method", r.Method,
		"path", r.URL.Path,
		"status_code", resp.StatusCode,
		"duration_ms", duration.Milliseconds(),
		"success", resp.StatusCode < 400)

	return resp, nil
}

// Metrics returns current metrics
func (t *Transport) Metrics() Metrics {
	return Metrics{
		TotalRequests:  t.total.Load(),
		FailedRequests: t.failed.Load(),
		LastDurationMS: t.lastDur.Load(),
	}
}
