package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	modelres "github.com/jonwraymond/modelbake/resource"
)

// Lookup outcomes recorded by RecordLookup.
const (
	LookupHit      = "hit"
	LookupMiss     = "miss"
	LookupNegative = "negative"
	LookupOverride = "override"
	LookupShared   = "shared"
)

// Metrics records resolution and cache metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordResolve records one resolution with its duration and outcome.
	RecordResolve(ctx context.Context, key modelres.Key, duration time.Duration, err error)

	// RecordLookup records a cache lookup outcome.
	RecordLookup(ctx context.Context, outcome string)

	// RecordEviction records entries dropped from the cache.
	RecordEviction(ctx context.Context, reason string, n int)
}

type metricsImpl struct {
	resolveCount  metric.Int64Counter
	errorCount    metric.Int64Counter
	durationHist  metric.Float64Histogram
	lookupCount   metric.Int64Counter
	evictionCount metric.Int64Counter
}

// NewMetrics creates a Metrics instance with the given meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	resolveCount, err := meter.Int64Counter(
		"artifact.resolve.total",
		metric.WithDescription("Total number of artifact resolutions"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		"artifact.resolve.errors",
		metric.WithDescription("Total number of failed artifact resolutions"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"artifact.resolve.duration_ms",
		metric.WithDescription("Artifact resolution duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	lookupCount, err := meter.Int64Counter(
		"artifact.cache.lookups",
		metric.WithDescription("Artifact cache lookups by outcome"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	evictionCount, err := meter.Int64Counter(
		"artifact.cache.evictions",
		metric.WithDescription("Artifact cache entries evicted"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		resolveCount:  resolveCount,
		errorCount:    errorCount,
		durationHist:  durationHist,
		lookupCount:   lookupCount,
		evictionCount: evictionCount,
	}, nil
}

func (m *metricsImpl) RecordResolve(ctx context.Context, key modelres.Key, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("resource.namespace", key.Namespace),
	}
	opt := metric.WithAttributes(attrs...)

	m.resolveCount.Add(ctx, 1, opt)
	if err != nil {
		m.errorCount.Add(ctx, 1, metric.WithAttributes(
			attribute.String("resource.namespace", key.Namespace),
			attribute.String("resource.error_kind", modelres.KindOf(err).String()),
		))
	}
	m.durationHist.Record(ctx, float64(duration.Milliseconds()), opt)
}

func (m *metricsImpl) RecordLookup(ctx context.Context, outcome string) {
	m.lookupCount.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *metricsImpl) RecordEviction(ctx context.Context, reason string, n int) {
	if n <= 0 {
		return
	}
	m.evictionCount.Add(ctx, int64(n), metric.WithAttributes(attribute.String("reason", reason)))
}

// NoopMetrics returns a Metrics that records nothing.
func NoopMetrics() Metrics {
	return noopMetrics{}
}

type noopMetrics struct{}

func (noopMetrics) RecordResolve(context.Context, modelres.Key, time.Duration, error) {}
func (noopMetrics) RecordLookup(context.Context, string)                            {}
func (noopMetrics) RecordEviction(context.Context, string, int)                     {}
