// Package tracking records OpenTelemetry metrics and spans for outbound calls.
// Instruments are resolved lazily from the global providers, so nothing is exported
// until the application installs a MeterProvider or TracerProvider.
package tracking

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "fnbricks/http-client"

	metricAttemptDuration = "http.client.request.duration" // Histogram in seconds
	metricAttempts        = "http.client.attempts"         // Counter

	attrHTTPRequestMethod  = "http.request.method"
	attrHTTPResponseStatus = "http.response.status_code"
	attrServerAddress      = "server.address"
	attrErrorType          = "error.type"
	attrRetryDecision      = "retry.decision"
	attrAttemptNumber      = "http.request.attempt"
)

// Same boundaries as the OTel HTTP semantic conventions.
var durationBuckets = []float64{
	0.005, 0.01, 0.025, 0.05, 0.075, 0.1, 0.25, 0.5, 0.75, 1, 2.5, 5, 7.5, 10,
}

var (
	meter         metric.Meter
	meterOnce     sync.Once
	meterInitMu   sync.Mutex
	metricsInited bool

	durationHistogram metric.Float64Histogram
	attemptsCounter   metric.Int64Counter
)

// Attempt describes one finished attempt.
type Attempt struct {
	Number int
	Method string
	Host   string
	// Status is 0 when no response was received.
	Status int
	// ErrorType is empty for clean responses.
	ErrorType string
	Decision  string
	Duration  time.Duration
}

func logMetricError(metricName string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "WARNING: Failed to initialize HTTP client metric %s: %v\n", metricName, err)
	}
}

func initMeter() {
	meterInitMu.Lock()
	defer meterInitMu.Unlock()

	if meter != nil {
		return
	}
	meter = otel.Meter(meterName)

	var err error
	durationHistogram, err = meter.Float64Histogram(
		metricAttemptDuration,
		metric.WithDescription("Duration of outbound HTTP attempts"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	)
	logMetricError(metricAttemptDuration, err)

	attemptsCounter, err = meter.Int64Counter(
		metricAttempts,
		metric.WithDescription("Number of outbound HTTP attempts by retry decision"),
		metric.WithUnit("{attempt}"),
	)
	logMetricError(metricAttempts, err)

	metricsInited = true
}

// RecordAttempt records the duration and retry decision of one attempt.
func RecordAttempt(ctx context.Context, a *Attempt) {
	meterOnce.Do(initMeter)

	attrs := attemptAttributes(a)
	if durationHistogram != nil {
		durationHistogram.Record(ctx, a.Duration.Seconds(), metric.WithAttributes(attrs...))
	}
	if attemptsCounter != nil {
		attemptsCounter.Add(ctx, 1, metric.WithAttributes(
			append(attrs, attribute.String(attrRetryDecision, a.Decision))...,
		))
	}
}

func attemptAttributes(a *Attempt) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(attrHTTPRequestMethod, a.Method),
		attribute.String(attrServerAddress, a.Host),
	}
	if a.Status != 0 {
		attrs = append(attrs, attribute.Int(attrHTTPResponseStatus, a.Status))
	}
	if a.ErrorType != "" {
		attrs = append(attrs, attribute.String(attrErrorType, a.ErrorType))
	}
	return attrs
}

// IsInitialized returns true if the instruments have been created.
func IsInitialized() bool {
	meterInitMu.Lock()
	defer meterInitMu.Unlock()
	return metricsInited
}

// ResetForTesting resets the metric state. Only call it from tests.
func ResetForTesting() {
	meterInitMu.Lock()
	defer meterInitMu.Unlock()

	meter = nil
	durationHistogram = nil
	attemptsCounter = nil
	metricsInited = false
	meterOnce = sync.Once{}
}
