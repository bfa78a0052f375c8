package httpclient

import (
	"context"
	nethttp "net/http"
	"time"

	"github.com/gaborage/fnbricks/trace"
)

const (
	// HeaderXRequestID is the standard header name for request tracing
	HeaderXRequestID = trace.HeaderXRequestID
	// HeaderTraceParent is the W3C trace context header name
	HeaderTraceParent = trace.HeaderTraceParent
	// HeaderTraceState is the W3C trace context "tracestate" header name
	HeaderTraceState = trace.HeaderTraceState
)

// Client issues outbound HTTP calls. Every method returns an Envelope; none of them
// returns an error or panics. Inspect Envelope.Error to detect failure.
type Client interface {
	Get(ctx context.Context, req *Request) *Envelope
	Post(ctx context.Context, req *Request) *Envelope
	Put(ctx context.Context, req *Request) *Envelope
	Patch(ctx context.Context, req *Request) *Envelope
	Delete(ctx context.Context, req *Request) *Envelope
	Do(ctx context.Context, method string, req *Request) *Envelope
	// DoWithStats is Do plus execution statistics for the call.
	DoWithStats(ctx context.Context, method string, req *Request) (*Envelope, CallStats)
	// Call runs target with an explicit retry configuration, ignoring the client's
	// retry defaults.
	Call(ctx context.Context, target *Target, cfg RetryConfig) *Envelope
}

// Request represents an HTTP request with all necessary data
type Request struct {
	URL         string
	Headers     map[string]string
	QueryParams map[string]string
	// Body is sent as is when it is a []byte or string, JSON encoded otherwise.
	Body any
	Auth *BasicAuth
	// Retry overrides the client retry defaults for this request.
	Retry *RetryConfig
}

// Target is a complete description of one resilient call.
type Target struct {
	Method      string
	URL         string
	Headers     map[string]string
	QueryParams map[string]string
	Body        any
}

// Response is the raw result of one attempt that reached the server.
type Response struct {
	StatusCode int
	Body       []byte
	Headers    nethttp.Header
	Stats      Stats
}

// Stats contains attempt execution statistics
type Stats struct {
	ElapsedTime time.Duration
	CallCount   int64
}

// CallStats describes a whole resilient call.
type CallStats struct {
	// Attempts is the number of attempts started, 0 when the request was rejected up front.
	Attempts int
	Elapsed  time.Duration
	// CallCount is the client-wide sequence number of the call.
	CallCount int64
}

// BasicAuth contains basic authentication credentials
type BasicAuth struct {
	Username string
	Password string
}

// RequestInterceptor is called before sending the request
type RequestInterceptor func(ctx context.Context, req *nethttp.Request) error

// ResponseInterceptor is called after receiving the response
type ResponseInterceptor func(ctx context.Context, req *nethttp.Request, resp *nethttp.Response) error

// Config holds the client configuration. It is copied by Builder.Build and never
// mutated afterwards.
type Config struct {
	// Timeout bounds each attempt. Zero disables the deadline.
	Timeout time.Duration
	// MaxRetries is the number of additional attempts after the first.
	MaxRetries int
	// RetryStatusCodes lists the response statuses that trigger another attempt.
	RetryStatusCodes     []StatusMatcher
	RequestInterceptors  []RequestInterceptor
	ResponseInterceptors []ResponseInterceptor
	BasicAuth            *BasicAuth
	DefaultHeaders       map[string]string
	// LogPayloads enables debug-level logging of headers and body payloads
	LogPayloads bool
	// MaxPayloadLogBytes caps the number of body bytes logged when LogPayloads is enabled
	MaxPayloadLogBytes int
	// TraceIDHeader configures the header name used for trace ID propagation (default: X-Request-ID)
	TraceIDHeader string
	// NewTraceID generates a new trace ID when none is present (default: uuid)
	NewTraceID func() string
	// TraceIDExtractor allows advanced extraction of a trace ID from context; return ok=false to fallback to generator
	TraceIDExtractor func(_ context.Context) (traceID string, ok bool)
	// EnableW3CTrace enables W3C Trace Context (traceparent/tracestate) propagation and generation
	EnableW3CTrace bool
	// Breaker enables the circuit breaker guard when non-nil.
	Breaker *BreakerConfig
	// RateLimit enables the outbound rate limit guard when non-nil.
	RateLimit *RateLimitConfig
}

// WithTraceID adds a trace ID to the context for HTTP client propagation
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return trace.WithTraceID(ctx, traceID)
}

// TraceIDFromContext returns a trace ID from context if present
func TraceIDFromContext(ctx context.Context) (string, bool) { return trace.IDFromContext(ctx) }

// EnsureTraceID returns an existing trace ID from context or generates a new one
func EnsureTraceID(ctx context.Context) string { return trace.EnsureTraceID(ctx) }

// WithTraceParent adds a W3C traceparent value to the context
func WithTraceParent(ctx context.Context, traceParent string) context.Context {
	return trace.WithTraceParent(ctx, traceParent)
}

// TraceParentFromContext returns a traceparent from context if present
func TraceParentFromContext(ctx context.Context) (string, bool) {
	return trace.ParentFromContext(ctx)
}

// WithTraceState adds a W3C tracestate value to the context
func WithTraceState(ctx context.Context, traceState string) context.Context {
	return trace.WithTraceState(ctx, traceState)
}

// NewTraceIDInterceptor creates a request interceptor that adds trace ID headers.
// The client already propagates trace IDs; use this when wrapping a plain http.Client.
func NewTraceIDInterceptor() RequestInterceptor {
	return NewTraceIDInterceptorFor(HeaderXRequestID)
}

// NewTraceIDInterceptorFor creates an interceptor that uses a custom header name
func NewTraceIDInterceptorFor(header string) RequestInterceptor {
	if header == "" {
		header = HeaderXRequestID
	}
	return func(ctx context.Context, req *nethttp.Request) error {
		if req.Header.Get(header) == "" {
			req.Header.Set(header, EnsureTraceID(ctx))
		}
		return nil
	}
}
