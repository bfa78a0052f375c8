// Package trace carries request correlation identifiers through a context and onto
// outbound HTTP headers. Two schemes are supported: a plain request ID header
// (X-Request-ID by default) and W3C Trace Context (traceparent/tracestate).
package trace

import (
	"context"
	crand "crypto/rand"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

type contextKey string

const (
	traceIDKey     contextKey = "trace_id"
	traceParentKey contextKey = "traceparent"
	traceStateKey  contextKey = "tracestate"

	// HeaderXRequestID is the standard header name for request tracing
	HeaderXRequestID = "X-Request-ID"
	// HeaderTraceParent is the W3C trace context header name
	HeaderTraceParent = "traceparent"
	// HeaderTraceState is the W3C trace context "tracestate" header name
	HeaderTraceState = "tracestate"
)

// WithTraceID adds a trace ID to the context
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// IDFromContext returns a trace ID from context if present
func IDFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, traceIDKey)
}

// EnsureTraceID returns an existing trace ID from context or generates a new one
func EnsureTraceID(ctx context.Context) string {
	if traceID, ok := IDFromContext(ctx); ok {
		return traceID
	}
	return NewID()
}

// NewID generates a random request ID.
func NewID() string {
	return uuid.New().String()
}

// WithTraceParent adds a W3C traceparent value to the context
func WithTraceParent(ctx context.Context, traceParent string) context.Context {
	return context.WithValue(ctx, traceParentKey, traceParent)
}

// ParentFromContext returns a traceparent from context if present
func ParentFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, traceParentKey)
}

// WithTraceState adds a W3C tracestate value to the context
func WithTraceState(ctx context.Context, traceState string) context.Context {
	return context.WithValue(ctx, traceStateKey, traceState)
}

// StateFromContext returns a tracestate from context if present
func StateFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, traceStateKey)
}

func stringValue(ctx context.Context, key contextKey) (string, bool) {
	if ctx == nil {
		return "", false
	}
	if v, ok := ctx.Value(key).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// GenerateTraceParent creates a sampled W3C traceparent header value.
// Format: version(2)-trace-id(32)-span-id(16)-flags(2), e.g. "00-<32>-<16>-01"
func GenerateTraceParent() string {
	traceID := randomNonZero(16)
	spanID := randomNonZero(8)
	return "00-" + hex.EncodeToString(traceID) + "-" + hex.EncodeToString(spanID) + "-01"
}

// IDFromTraceParent extracts the 32 hex character trace-id field of a traceparent value.
func IDFromTraceParent(traceParent string) (string, bool) {
	parts := strings.Split(traceParent, "-")
	if len(parts) != 4 || len(parts[1]) != 32 {
		return "", false
	}
	if _, err := hex.DecodeString(parts[1]); err != nil {
		return "", false
	}
	return strings.ToLower(parts[1]), true
}

// randomNonZero returns n random bytes. All-zero IDs are invalid in W3C trace context,
// so the last byte is forced to 1 when the reader fails or yields zeros.
func randomNonZero(n int) []byte {
	b := make([]byte, n)
	if _, err := crand.Read(b); err != nil {
		clear(b)
	}
	for _, v := range b {
		if v != 0 {
			return b
		}
	}
	b[n-1] = 0x01
	return b
}
