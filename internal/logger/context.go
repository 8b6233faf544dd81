package logger

import (
	"context"
	"time"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey struct{}

// logContextKey is the key for LogContext in context.Context
var logContextKey = contextKey{}

// LogContext holds call-scoped logging context
type LogContext struct {
	TraceID   string    // OpenTelemetry trace ID
	SpanID    string    // OpenTelemetry span ID
	Procedure string    // NFS/RPC procedure name (READ, WRITE, LOOKUP, SEQUENCE, ...)
	Server    string    // Server address being spoken to
	Export    string    // Mounted export path
	XID       uint32    // RPC transaction ID of the in-flight call
	StartTime time.Time // For duration calculation
}

// WithContext returns a new context with the given LogContext
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from context, or nil if not present
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext creates a new LogContext for calls against the given server.
func NewLogContext(server string) *LogContext {
	return &LogContext{
		Server:    server,
		StartTime: time.Now(),
	}
}

// Clone creates a copy of the LogContext
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	return &LogContext{
		TraceID:   lc.TraceID,
		SpanID:    lc.SpanID,
		Procedure: lc.Procedure,
		Server:    lc.Server,
		Export:    lc.Export,
		XID:       lc.XID,
		StartTime: lc.StartTime,
	}
}

// WithProcedure returns a copy with the procedure set
func (lc *LogContext) WithProcedure(procedure string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Procedure = procedure
	}
	return clone
}

// WithExport returns a copy with the export path set
func (lc *LogContext) WithExport(export string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Export = export
	}
	return clone
}

// WithXID returns a copy with the RPC transaction ID set
func (lc *LogContext) WithXID(xid uint32) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.XID = xid
	}
	return clone
}

// WithTrace returns a copy with trace info set
func (lc *LogContext) WithTrace(traceID, spanID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.TraceID = traceID
		clone.SpanID = spanID
	}
	return clone
}

// DurationMs returns the duration since StartTime in milliseconds
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}
