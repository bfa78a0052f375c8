package httpclient

import (
	"context"
	"maps"
	nethttp "net/http"
	"slices"
	"time"

	"github.com/gaborage/fnbricks/config"
	"github.com/gaborage/fnbricks/logger"
)

const (
	// DefaultTimeout is the default per-attempt timeout
	DefaultTimeout = 30 * time.Second

	// DefaultMaxRetries is the default number of additional attempts
	DefaultMaxRetries = 0
)

// Builder provides a fluent interface for configuring the REST client
type Builder struct {
	config     *Config
	logger     logger.Logger
	httpClient *nethttp.Client
	transport  nethttp.RoundTripper
}

// NewBuilder creates a new client builder
func NewBuilder(log logger.Logger) *Builder {
	return &Builder{
		config: &Config{
			Timeout:            DefaultTimeout,
			MaxRetries:         DefaultMaxRetries,
			DefaultHeaders:     make(map[string]string),
			MaxPayloadLogBytes: defaultMaxPayloadLogBytes,
			TraceIDHeader:      HeaderXRequestID,
		},
		logger: log,
	}
}

// NewBuilderFromConfig creates a builder from the httpclient configuration section.
func NewBuilderFromConfig(cfg *config.HTTPClientConfig, log logger.Logger) (*Builder, error) {
	matchers, err := ParseStatusMatchers(cfg.Retry.StatusCodes, cfg.Retry.StatusPatterns)
	if err != nil {
		return nil, config.NewValidationError("httpclient.retry", err.Error())
	}

	b := NewBuilder(log).
		WithTimeout(cfg.Timeout).
		WithRetries(cfg.MaxRetries).
		WithRetryStatusCodes(matchers...).
		WithW3CTrace(cfg.W3CTrace)

	if cfg.LogPayloads {
		b.WithPayloadLogging(cfg.MaxPayloadLogBytes)
	}
	if cfg.TraceIDHeader != "" {
		b.WithTraceIDHeader(cfg.TraceIDHeader)
	}
	for key, value := range cfg.DefaultHeaders {
		b.WithDefaultHeader(key, value)
	}
	if cfg.Breaker.Enabled {
		b.WithCircuitBreaker(BreakerConfig{
			Name:                "httpclient",
			ConsecutiveFailures: cfg.Breaker.ConsecutiveFailures,
			MaxRequests:         cfg.Breaker.MaxRequests,
			Interval:            cfg.Breaker.Interval,
			Timeout:             cfg.Breaker.Timeout,
		})
	}
	if cfg.RateLimit.RequestsPerSecond > 0 {
		b.WithRateLimit(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	}
	return b, nil
}

// WithTimeout sets the per-attempt timeout. Zero disables it.
func (b *Builder) WithTimeout(timeout time.Duration) *Builder {
	b.config.Timeout = timeout
	return b
}

// WithRetries sets the number of additional attempts after the first.
func (b *Builder) WithRetries(maxRetries int) *Builder {
	b.config.MaxRetries = maxRetries
	return b
}

// WithRetryStatusCodes sets the response statuses that trigger another attempt.
func (b *Builder) WithRetryStatusCodes(matchers ...StatusMatcher) *Builder {
	b.config.RetryStatusCodes = append(b.config.RetryStatusCodes, matchers...)
	return b
}

// WithBasicAuth sets basic authentication credentials
func (b *Builder) WithBasicAuth(username, password string) *Builder {
	b.config.BasicAuth = &BasicAuth{Username: username, Password: password}
	return b
}

// WithDefaultHeader adds a default header that will be sent with all requests
func (b *Builder) WithDefaultHeader(key, value string) *Builder {
	b.config.DefaultHeaders[key] = value
	return b
}

// WithRequestInterceptor adds a request interceptor
func (b *Builder) WithRequestInterceptor(interceptor RequestInterceptor) *Builder {
	b.config.RequestInterceptors = append(b.config.RequestInterceptors, interceptor)
	return b
}

// WithResponseInterceptor adds a response interceptor
func (b *Builder) WithResponseInterceptor(interceptor ResponseInterceptor) *Builder {
	b.config.ResponseInterceptors = append(b.config.ResponseInterceptors, interceptor)
	return b
}

// WithHTTPClient uses hc for transport. Its Timeout should be zero: attempt
// deadlines come from WithTimeout.
func (b *Builder) WithHTTPClient(hc *nethttp.Client) *Builder {
	b.httpClient = hc
	return b
}

// WithTransport sets the RoundTripper of the underlying http.Client.
func (b *Builder) WithTransport(rt nethttp.RoundTripper) *Builder {
	b.transport = rt
	return b
}

// WithTraceIDHeader sets the header used for request ID propagation.
func (b *Builder) WithTraceIDHeader(header string) *Builder {
	b.config.TraceIDHeader = header
	return b
}

// WithTraceIDGenerator sets the request ID generator used when the context has none.
func (b *Builder) WithTraceIDGenerator(gen func() string) *Builder {
	b.config.NewTraceID = gen
	return b
}

// WithTraceIDExtractor sets a function that extracts a request ID from the context.
func (b *Builder) WithTraceIDExtractor(extract func(context.Context) (string, bool)) *Builder {
	b.config.TraceIDExtractor = extract
	return b
}

// WithW3CTrace toggles traceparent/tracestate propagation.
func (b *Builder) WithW3CTrace(enabled bool) *Builder {
	b.config.EnableW3CTrace = enabled
	return b
}

// WithPayloadLogging enables debug logging of headers and body previews capped at maxBytes.
func (b *Builder) WithPayloadLogging(maxBytes int) *Builder {
	b.config.LogPayloads = true
	if maxBytes > 0 {
		b.config.MaxPayloadLogBytes = maxBytes
	}
	return b
}

// WithCircuitBreaker enables the circuit breaker guard.
func (b *Builder) WithCircuitBreaker(cfg BreakerConfig) *Builder {
	b.config.Breaker = &cfg
	return b
}

// WithRateLimit enables the non-blocking outbound rate limit guard.
func (b *Builder) WithRateLimit(requestsPerSecond float64, burst int) *Builder {
	b.config.RateLimit = &RateLimitConfig{RequestsPerSecond: requestsPerSecond, Burst: burst}
	return b
}

// Build creates the client. Later changes to the builder do not affect it.
func (b *Builder) Build() Client {
	cfg := *b.config
	cfg.DefaultHeaders = maps.Clone(b.config.DefaultHeaders)
	cfg.RetryStatusCodes = slices.Clone(b.config.RetryStatusCodes)
	cfg.RequestInterceptors = slices.Clone(b.config.RequestInterceptors)
	cfg.ResponseInterceptors = slices.Clone(b.config.ResponseInterceptors)

	hc := b.httpClient
	if hc == nil {
		hc = &nethttp.Client{}
	}
	if b.transport != nil {
		copied := *hc
		copied.Transport = b.transport
		hc = &copied
	}

	log := b.logger
	if log == nil {
		log = logger.NewNop()
	}

	return &client{
		httpClient: hc,
		logger:     log,
		config:     &cfg,
		guards:     newGuards(&cfg),
	}
}
