package tracking

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName = "fnbricks/http-client"
	spanName   = "http.client.call"

	attrAttempts = "http.client.attempts"
	eventAttempt = "attempt"
)

// StartCall opens the span covering every attempt of one resilient call.
func StartCall(ctx context.Context, method, host string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, spanName,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String(attrHTTPRequestMethod, method),
			attribute.String(attrServerAddress, host),
		),
	)
}

// AddAttemptEvent annotates the call span in ctx with the outcome of one attempt.
func AddAttemptEvent(ctx context.Context, a *Attempt) {
	attrs := append(attemptAttributes(a),
		attribute.Int(attrAttemptNumber, a.Number),
		attribute.String(attrRetryDecision, a.Decision),
	)
	trace.SpanFromContext(ctx).AddEvent(eventAttempt, trace.WithAttributes(attrs...))
}

// EndCall closes span with the final status of the call.
func EndCall(span trace.Span, status, attempts int, errMessage string) {
	span.SetAttributes(
		attribute.Int(attrHTTPResponseStatus, status),
		attribute.Int(attrAttempts, attempts),
	)
	if errMessage != "" {
		span.SetStatus(codes.Error, errMessage)
	}
	span.End()
}
