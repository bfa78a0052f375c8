package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/gaborage/fnbricks/config"
)

// OTLP transport protocols.
const (
	ProtocolHTTP = "http"
	ProtocolGRPC = "grpc"
)

func (p *provider) initMeterProvider() error {
	exporter, err := p.newMetricExporter()
	if err != nil {
		return fmt.Errorf("failed to create metric exporter: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if p.cfg.MetricsInterval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(p.cfg.MetricsInterval))
	}

	p.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(p.res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
	)
	return nil
}

func (p *provider) newMetricExporter() (sdkmetric.Exporter, error) {
	if p.cfg.Endpoint == config.EndpointStdout {
		opts := []stdoutmetric.Option{stdoutmetric.WithWriter(p.opts.writer)}
		if p.opts.pretty {
			opts = append(opts, stdoutmetric.WithPrettyPrint())
		}
		return stdoutmetric.New(opts...)
	}

	switch p.protocol() {
	case ProtocolHTTP:
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(p.cfg.Endpoint)}
		if p.cfg.Insecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		if len(p.cfg.Headers) > 0 {
			opts = append(opts, otlpmetrichttp.WithHeaders(p.cfg.Headers))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case ProtocolGRPC:
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(p.cfg.Endpoint)}
		if p.cfg.Insecure {
			opts = append(opts, otlpmetricgrpc.WithTLSCredentials(insecure.NewCredentials()))
		}
		if len(p.cfg.Headers) > 0 {
			opts = append(opts, otlpmetricgrpc.WithHeaders(p.cfg.Headers))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("metrics protocol '%s': %w", p.cfg.Protocol, ErrInvalidProtocol)
	}
}
