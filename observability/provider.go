// Package observability installs the OpenTelemetry SDK providers that receive the
// spans and metrics recorded by the HTTP client. Telemetry goes either to a writer
// (the "stdout" endpoint) or to an OTLP collector over HTTP or gRPC.
package observability

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.32.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/gaborage/fnbricks/config"
	"github.com/gaborage/fnbricks/logger"
)

// Provider owns the tracer and meter providers for the process.
type Provider interface {
	TracerProvider() trace.TracerProvider
	MeterProvider() metric.MeterProvider
	// Shutdown flushes pending telemetry and stops the exporters.
	Shutdown(ctx context.Context) error
	ForceFlush(ctx context.Context) error
}

// Option customizes NewProvider.
type Option func(*options)

type options struct {
	writer io.Writer
	log    logger.Logger
	pretty bool
}

// WithWriter sets the destination of the stdout exporters. Defaults to os.Stderr
// so command output on stdout stays machine readable.
func WithWriter(w io.Writer) Option {
	return func(o *options) { o.writer = w }
}

// WithLogger sets the logger used to report provider setup.
func WithLogger(l logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithPrettyPrint indents the JSON written by the stdout exporters.
func WithPrettyPrint() Option {
	return func(o *options) { o.pretty = true }
}

type provider struct {
	cfg            config.ObservabilityConfig
	opts           options
	res            *resource.Resource
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	mu             sync.Mutex
}

// NewProvider builds the SDK providers described by cfg.Observability and installs
// them, together with the W3C propagator, as the otel globals. When export is
// disabled it returns a no-op provider and leaves the globals alone.
func NewProvider(cfg *config.Config, opts ...Option) (Provider, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}

	o := options{writer: os.Stderr, log: logger.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	if !cfg.Observability.Enabled {
		return noopProvider{}, nil
	}

	res, err := newResource(&cfg.App)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	p := &provider{cfg: cfg.Observability, opts: o, res: res}
	if err := p.initTraceProvider(); err != nil {
		return nil, fmt.Errorf("failed to initialize trace provider: %w", err)
	}
	if err := p.initMeterProvider(); err != nil {
		_ = p.tracerProvider.Shutdown(context.Background())
		return nil, fmt.Errorf("failed to initialize meter provider: %w", err)
	}

	otel.SetTracerProvider(p.tracerProvider)
	otel.SetMeterProvider(p.meterProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	o.log.Debug().
		Str("endpoint", p.cfg.Endpoint).
		Str("protocol", p.protocol()).
		Interface("sample_rate", p.cfg.SampleRate).
		Msg("Telemetry export enabled")
	return p, nil
}

func newResource(app *config.AppConfig) (*resource.Resource, error) {
	custom, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(app.Name),
			semconv.ServiceVersion(app.Version),
			semconv.DeploymentEnvironmentName(app.Env),
		),
	)
	if err != nil {
		return nil, err
	}
	return resource.Merge(resource.Default(), custom)
}

func (p *provider) protocol() string {
	if p.cfg.Protocol == "" {
		return ProtocolHTTP
	}
	return p.cfg.Protocol
}

func (p *provider) initTraceProvider() error {
	exporter, err := p.newTraceExporter()
	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	p.tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithResource(p.res),
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(p.cfg.SampleRate))),
	)
	return nil
}

func (p *provider) newTraceExporter() (sdktrace.SpanExporter, error) {
	if p.cfg.Endpoint == config.EndpointStdout {
		opts := []stdouttrace.Option{stdouttrace.WithWriter(p.opts.writer)}
		if p.opts.pretty {
			opts = append(opts, stdouttrace.WithPrettyPrint())
		}
		return stdouttrace.New(opts...)
	}

	switch p.protocol() {
	case ProtocolHTTP:
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(p.cfg.Endpoint)}
		if p.cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		if len(p.cfg.Headers) > 0 {
			opts = append(opts, otlptracehttp.WithHeaders(p.cfg.Headers))
		}
		return otlptracehttp.New(context.Background(), opts...)
	case ProtocolGRPC:
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(p.cfg.Endpoint)}
		if p.cfg.Insecure {
			opts = append(opts, otlptracegrpc.WithTLSCredentials(insecure.NewCredentials()))
		}
		if len(p.cfg.Headers) > 0 {
			opts = append(opts, otlptracegrpc.WithHeaders(p.cfg.Headers))
		}
		return otlptracegrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("trace protocol '%s': %w", p.cfg.Protocol, ErrInvalidProtocol)
	}
}

func (p *provider) TracerProvider() trace.TracerProvider {
	return p.tracerProvider
}

func (p *provider) MeterProvider() metric.MeterProvider {
	return p.meterProvider
}

// Shutdown stops tracing before metrics.
func (p *provider) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	if err := p.tracerProvider.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to shutdown trace provider: %w", err))
	}
	if err := p.meterProvider.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to shutdown meter provider: %w", err))
	}
	return errors.Join(errs...)
}

func (p *provider) ForceFlush(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	if err := p.tracerProvider.ForceFlush(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to flush trace provider: %w", err))
	}
	if err := p.meterProvider.ForceFlush(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to flush meter provider: %w", err))
	}
	return errors.Join(errs...)
}
