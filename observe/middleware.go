package observe

import (
	"context"
	"time"

	modelres "github.com/jonwraymond/modelbake/resource"
)

// ResolveFunc is the signature of a resolution step that Middleware wraps.
type ResolveFunc func(ctx context.Context, key modelres.Key) (modelres.Artifact, error)

// Middleware wraps resolution with tracing, metrics, and logging.
//
// Contract:
//   - Concurrency: Wrap() returns a thread-safe ResolveFunc.
//   - Context: Propagates context through tracing spans.
//   - Errors: Errors from the wrapped function are recorded and propagated unchanged.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a new Middleware. Nil components are replaced with no-ops.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	if tracer == nil {
		tracer = NoopTracer()
	}
	if metrics == nil {
		metrics = NoopMetrics()
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &Middleware{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
	}
}

// Metrics returns the middleware's metrics recorder.
func (m *Middleware) Metrics() Metrics {
	return m.metrics
}

// Wrap wraps a ResolveFunc with tracing, metrics, and logging.
func (m *Middleware) Wrap(fn ResolveFunc) ResolveFunc {
	return func(ctx context.Context, key modelres.Key) (modelres.Artifact, error) {
		ctx, span := m.tracer.StartSpan(ctx, OpResolve, key)
		start := time.Now()

		artifact, err := fn(ctx, key)

		duration := time.Since(start)
		m.tracer.EndSpan(span, err)
		m.metrics.RecordResolve(ctx, key, duration, err)

		fields := []Field{
			{Key: "duration_ms", Value: float64(duration.Milliseconds())},
		}
		logger := m.logger.WithKey(key)
		if err != nil {
			fields = append(fields,
				Field{Key: "error_kind", Value: modelres.KindOf(err).String()},
			)
			logger.Debug(ctx, "artifact resolution failed", fields...)
		} else {
			logger.Debug(ctx, "artifact resolution completed", fields...)
		}

		return artifact, err
	}
}

// MiddlewareFromObserver creates a Middleware from an Observer.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}
	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}
