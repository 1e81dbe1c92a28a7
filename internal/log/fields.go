package log

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldRequestID     = "request_id"
	FieldOperation     = "operation"
	FieldError         = "error"
	FieldDuration      = "duration_ms"
	FieldTransactionID = "transaction_id"
	FieldName          = "name"
	FieldValue         = "value"
	FieldPending       = "pending"
	FieldSynced        = "synced"
	FieldFailed        = "failed"
	FieldBackend       = "backend"
)

// Components defines standard component names
const (
	ComponentApp        = "app"
	ComponentGateway    = "gateway"
	ComponentReconciler = "reconciler"
	ComponentView       = "view"
	ComponentCache      = "cache"
	ComponentBackend    = "backend"
	ComponentWorker     = "worker"
)

// Operations defines standard operation names
const (
	OpSubmit  = "submit"
	OpEnqueue = "enqueue"
	OpSync    = "sync"
	OpPrune   = "prune"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithComponent adds component field
func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithRequestID adds request ID field
func (f LogFields) WithRequestID(requestID string) LogFields {
	f[FieldRequestID] = requestID
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithTransaction adds transaction-related fields
func (f LogFields) WithTransaction(id, name string, value int64) LogFields {
	f[FieldTransactionID] = id
	f[FieldName] = name
	f[FieldValue] = value
	return f
}

// WithPass adds reconciliation pass counters
func (f LogFields) WithPass(pending, synced, failed int) LogFields {
	f[FieldPending] = pending
	f[FieldSynced] = synced
	f[FieldFailed] = failed
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
