package observe

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/jonwraymond/modelbake/observe/exporters"
	modelres "github.com/jonwraymond/modelbake/resource"
)

// DefaultServiceName is the service name DefaultConfig reports.
const DefaultServiceName = "modelbake"

// Exporter names accepted by TracingConfig and MetricsConfig. The empty
// string is treated as ExporterNone.
const (
	ExporterNone       = "none"
	ExporterStdout     = "stdout"
	ExporterOTLP       = "otlp"
	ExporterJaeger     = "jaeger"
	ExporterPrometheus = "prometheus"
)

var (
	tracingExporters = map[string]bool{"": true, ExporterNone: true, ExporterStdout: true, ExporterOTLP: true, ExporterJaeger: true}
	metricsExporters = map[string]bool{"": true, ExporterNone: true, ExporterStdout: true, ExporterOTLP: true, ExporterPrometheus: true}
)

// Config selects where a baking process sends its spans, resolution
// metrics and logs.
type Config struct {
	ServiceName string
	Version     string
	Tracing     TracingConfig
	Metrics     MetricsConfig
	Logging     LoggingConfig
}

// TracingConfig controls resolution spans.
type TracingConfig struct {
	Enabled  bool
	Exporter string
	// SampleRatio is the fraction of resolutions traced, from 0 to 1.
	SampleRatio float64
}

// MetricsConfig controls the lookup, resolution and eviction instruments.
type MetricsConfig struct {
	Enabled  bool
	Exporter string
}

// LoggingConfig controls the JSON logger on stderr.
type LoggingConfig struct {
	Enabled bool
	Level   string
}

// DefaultConfig logs at info level and keeps spans and metrics in-process.
func DefaultConfig() Config {
	return Config{
		ServiceName: DefaultServiceName,
		Tracing:     TracingConfig{Exporter: ExporterNone, SampleRatio: 1},
		Metrics:     MetricsConfig{Exporter: ExporterNone},
		Logging:     LoggingConfig{Enabled: true, Level: LevelInfo.String()},
	}
}

// Validate reports the first unusable setting. Settings of a disabled
// section are not checked.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return ErrNoServiceName
	}
	if t := c.Tracing; t.Enabled {
		if !tracingExporters[t.Exporter] {
			return fmt.Errorf("%w %q for tracing", ErrUnknownExporter, t.Exporter)
		}
		if t.SampleRatio < 0 || t.SampleRatio > 1 {
			return fmt.Errorf("%w: got %g", ErrSampleRatio, t.SampleRatio)
		}
	}
	if m := c.Metrics; m.Enabled && !metricsExporters[m.Exporter] {
		return fmt.Errorf("%w %q for metrics", ErrUnknownExporter, m.Exporter)
	}
	if l := c.Logging; l.Enabled {
		if _, ok := LookupLogLevel(l.Level); !ok {
			return fmt.Errorf("%w %q", ErrUnknownLevel, l.Level)
		}
	}
	return nil
}

// sampler maps the ratio onto the SDK's fixed samplers at the bounds.
func (t TracingConfig) sampler() sdktrace.Sampler {
	switch {
	case t.SampleRatio >= 1:
		return sdktrace.AlwaysSample()
	case t.SampleRatio <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(t.SampleRatio))
	}
}

// Observer provides access to telemetry primitives.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: Shutdown must honor cancellation/deadlines.
// - Errors: Shutdown should be idempotent and return the first error encountered.
type Observer interface {
	// Tracer returns the configured tracer.
	Tracer() trace.Tracer

	// Meter returns the configured meter.
	Meter() metric.Meter

	// Logger returns the configured logger.
	Logger() Logger

	// Shutdown gracefully shuts down all telemetry providers.
	Shutdown(ctx context.Context) error
}

// Logger is a minimal structured logging interface.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: logging must be best-effort and must not panic.
type Logger interface {
	Info(ctx context.Context, msg string, fields ...Field)
	Warn(ctx context.Context, msg string, fields ...Field)
	Error(ctx context.Context, msg string, fields ...Field)
	Debug(ctx context.Context, msg string, fields ...Field)
	WithKey(key modelres.Key) Logger
}

// Field represents a structured log field.
type Field struct {
	Key   string
	Value any
}

// F is shorthand for constructing a Field.
func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// instrumentationName scopes the tracer and meter handed to the resolver.
const instrumentationName = "github.com/jonwraymond/modelbake"

type observer struct {
	tracer trace.Tracer
	meter  metric.Meter
	logger Logger

	mu       sync.Mutex
	shutdown []func(context.Context) error
}

// NewObserver builds the providers selected by cfg and installs them as the
// global OpenTelemetry providers. Disabled sections get no-op providers.
func NewObserver(ctx context.Context, cfg Config) (Observer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.Version),
	))
	if err != nil {
		return nil, fmt.Errorf("observe: telemetry resource: %w", err)
	}

	obs := &observer{
		tracer: tracenoop.NewTracerProvider().Tracer(instrumentationName),
		meter:  noop.NewMeterProvider().Meter(instrumentationName),
		logger: NopLogger(),
	}

	if cfg.Tracing.Enabled {
		exp, err := exporters.NewTracingExporter(ctx, cfg.Tracing.Exporter)
		if err != nil {
			return nil, fmt.Errorf("observe: tracing exporter %q: %w", cfg.Tracing.Exporter, err)
		}
		opts := []sdktrace.TracerProviderOption{
			sdktrace.WithResource(res),
			sdktrace.WithSampler(cfg.Tracing.sampler()),
		}
		if exp != nil {
			opts = append(opts, sdktrace.WithBatcher(exp))
		}
		tp := sdktrace.NewTracerProvider(opts...)
		otel.SetTracerProvider(tp)
		obs.tracer = tp.Tracer(instrumentationName)
		obs.shutdown = append(obs.shutdown, tp.Shutdown)
	}

	if cfg.Metrics.Enabled {
		reader, err := exporters.NewMetricsReader(ctx, cfg.Metrics.Exporter)
		if err != nil {
			_ = obs.Shutdown(ctx)
			return nil, fmt.Errorf("observe: metrics reader %q: %w", cfg.Metrics.Exporter, err)
		}
		opts := []sdkmetric.Option{sdkmetric.WithResource(res)}
		if reader != nil {
			opts = append(opts, sdkmetric.WithReader(reader))
		}
		mp := sdkmetric.NewMeterProvider(opts...)
		otel.SetMeterProvider(mp)
		obs.meter = mp.Meter(instrumentationName)
		obs.shutdown = append(obs.shutdown, mp.Shutdown)
	}

	if cfg.Logging.Enabled {
		obs.logger = NewLogger(cfg.Logging.Level)
	}
	return obs, nil
}

func (o *observer) Tracer() trace.Tracer { return o.tracer }
func (o *observer) Meter() metric.Meter   { return o.meter }
func (o *observer) Logger() Logger        { return o.logger }

// Shutdown flushes providers in reverse order of creation. Every provider
// is shut down even when an earlier one fails.
func (o *observer) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	var errs []error
	for i := len(o.shutdown) - 1; i >= 0; i-- {
		if err := o.shutdown[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	o.shutdown = nil
	return errors.Join(errs...)
}

// NopLogger returns a logger that discards everything.
func NopLogger() Logger {
	return noopLogger{}
}

type noopLogger struct{}

func (noopLogger) Info(context.Context, string, ...Field)  {}
func (noopLogger) Warn(context.Context, string, ...Field)  {}
func (noopLogger) Error(context.Context, string, ...Field) {}
func (noopLogger) Debug(context.Context, string, ...Field) {}
func (l noopLogger) WithKey(modelres.Key) Logger          { return l }
