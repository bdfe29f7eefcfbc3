package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	modelres "github.com/jonwraymond/modelbake/resource"
)

// Operation names used for spans and metrics.
const (
	OpResolve = "resolve"
	OpBuild   = "build"
)

// SpanName returns the deterministic span name for an operation on key.
// Format: artifact.<op>.<namespace>.<path>
func SpanName(op string, key modelres.Key) string {
	return "artifact." + op + "." + key.Namespace + "." + key.Path
}

// Tracer wraps OpenTelemetry tracing with artifact-specific span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a new span for an operation on key.
	StartSpan(ctx context.Context, op string, key modelres.Key) (context.Context, trace.Span)

	// EndSpan ends the span, recording any error.
	EndSpan(span trace.Span, err error)
}

type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer creates a Tracer wrapping the given OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

// StartSpan starts a new span with key attributes.
func (t *tracerImpl) StartSpan(ctx context.Context, op string, key modelres.Key) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("resource.key", key.String()),
		attribute.String("resource.namespace", key.Namespace),
		attribute.String("resource.path", key.Path),
		attribute.Bool("resource.error", false),
	}
	if key.Variant != "" {
		attrs = append(attrs, attribute.String("resource.variant", key.Variant))
	}

	return t.tracer.Start(ctx, SpanName(op, key),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndSpan ends the span and records the error status if present.
func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(
			attribute.Bool("resource.error", true),
			attribute.String("resource.error_kind", modelres.KindOf(err).String()),
		)
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

type noopTracer struct {
	noop trace.Tracer
}

// NoopTracer returns a tracer that records nothing.
func NoopTracer() Tracer {
	return &noopTracer{
		noop: tracenoop.NewTracerProvider().Tracer("noop"),
	}
}

func (t *noopTracer) StartSpan(ctx context.Context, op string, key modelres.Key) (context.Context, trace.Span) {
	return t.noop.Start(ctx, SpanName(op, key))
}

func (t *noopTracer) EndSpan(span trace.Span, _ error) {
	span.End()
}
