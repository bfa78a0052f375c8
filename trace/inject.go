package trace

import (
	"context"
	"net/http"
)

// InjectMode controls how existing header values are treated during injection.
type InjectMode int

const (
	// InjectPreserve keeps header values that are already set and only fills gaps.
	InjectPreserve InjectMode = iota
	// InjectOverwrite replaces header values with the ones found in the context.
	InjectOverwrite
)

// InjectOptions configures InjectIntoHeaders.
type InjectOptions struct {
	Mode InjectMode
	// RequestIDHeader overrides the request ID header name (default: X-Request-ID).
	RequestIDHeader string
	// NewID generates a request ID when neither the header nor the context has one.
	NewID func() string
	// W3C enables traceparent/tracestate propagation. A traceparent is generated
	// when none is available.
	W3C bool
}

// InjectIntoHeaders writes the request ID found in ctx (or a generated one) and, when
// enabled, the W3C trace context headers. It returns the request ID in effect.
func InjectIntoHeaders(ctx context.Context, h http.Header, opts InjectOptions) string {
	header := opts.RequestIDHeader
	if header == "" {
		header = HeaderXRequestID
	}

	if opts.W3C {
		injectW3C(ctx, h, opts.Mode)
	}

	existing := h.Get(header)
	if requestID, ok := IDFromContext(ctx); ok && (existing == "" || opts.Mode == InjectOverwrite) {
		h.Set(header, requestID)
		return requestID
	}
	if existing != "" {
		return existing
	}

	requestID := derivedID(h, opts.NewID)
	h.Set(header, requestID)
	return requestID
}

func injectW3C(ctx context.Context, h http.Header, mode InjectMode) {
	if h.Get(HeaderTraceParent) == "" || mode == InjectOverwrite {
		if tp, ok := ParentFromContext(ctx); ok {
			h.Set(HeaderTraceParent, tp)
		} else if h.Get(HeaderTraceParent) == "" {
			h.Set(HeaderTraceParent, GenerateTraceParent())
		}
	}
	if h.Get(HeaderTraceState) == "" || mode == InjectOverwrite {
		if ts, ok := StateFromContext(ctx); ok {
			h.Set(HeaderTraceState, ts)
		}
	}
}

// derivedID reuses the traceparent trace-id so both schemes correlate, falling back
// to the generator.
func derivedID(h http.Header, gen func() string) string {
	if id, ok := IDFromTraceParent(h.Get(HeaderTraceParent)); ok {
		return id
	}
	if gen != nil {
		if id := gen(); id != "" {
			return id
		}
	}
	return NewID()
}
