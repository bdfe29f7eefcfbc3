package observe

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	modelres "github.com/jonwraymond/modelbake/resource"
)

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func sumOf(t *testing.T, rm metricdata.ResourceMetrics, name string) int64 {
	t.Helper()
	m := findMetric(rm, name)
	if m == nil {
		return 0
	}
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("%s: expected Sum[int64], got %T", name, m.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func attrValue(attrs []attribute.KeyValue, key string) (attribute.Value, bool) {
	for _, a := range attrs {
		if string(a.Key) == key {
			return a.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestSpanName(t *testing.T) {
	got := SpanName(OpResolve, modelres.NewVariantKey("ns", "block/door", "open"))
	if got != "artifact.resolve.ns.block/door" {
		t.Errorf("SpanName() = %q", got)
	}
}

func TestTracer_SpanAttributesAndError(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tr := NewTracer(tp.Tracer("test"))

	key := modelres.NewVariantKey("ns", "door", "open")
	_, span := tr.StartSpan(context.Background(), OpBuild, key)
	tr.EndSpan(span, modelres.NewError(modelres.KindBuildFailure, key, errors.New("atlas full")))

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	s := spans[0]

	if s.Name() != "artifact.build.ns.door" {
		t.Errorf("span name = %q", s.Name())
	}
	if s.Status().Code != codes.Error {
		t.Errorf("status = %v, want Error", s.Status().Code)
	}
	if v, ok := attrValue(s.Attributes(), "resource.variant"); !ok || v.AsString() != "open" {
		t.Errorf("resource.variant = %v", v)
	}
	if v, ok := attrValue(s.Attributes(), "resource.error_kind"); !ok || v.AsString() != "build_failure" {
		t.Errorf("resource.error_kind = %v", v)
	}
	if v, _ := attrValue(s.Attributes(), "resource.error"); !v.AsBool() {
		t.Error("resource.error should be true")
	}
}

func TestMetrics_RecordResolve(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics failed: %v", err)
	}

	ctx := context.Background()
	key := modelres.NewKey("ns", "door")
	m.RecordResolve(ctx, key, 10*time.Millisecond, nil)
	m.RecordResolve(ctx, key, 20*time.Millisecond, modelres.NewError(modelres.KindNotFound, key, nil))
	m.RecordLookup(ctx, LookupHit)
	m.RecordLookup(ctx, LookupMiss)
	m.RecordLookup(ctx, LookupMiss)
	m.RecordEviction(ctx, "pressure", 5)
	m.RecordEviction(ctx, "pressure", 0)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}

	if got := sumOf(t, rm, "artifact.resolve.total"); got != 2 {
		t.Errorf("artifact.resolve.total = %d, want 2", got)
	}
	if got := sumOf(t, rm, "artifact.resolve.errors"); got != 1 {
		t.Errorf("artifact.resolve.errors = %d, want 1", got)
	}
	if got := sumOf(t, rm, "artifact.cache.lookups"); got != 3 {
		t.Errorf("artifact.cache.lookups = %d, want 3", got)
	}
	if got := sumOf(t, rm, "artifact.cache.evictions"); got != 5 {
		t.Errorf("artifact.cache.evictions = %d, want 5", got)
	}

	hist := findMetric(rm, "artifact.resolve.duration_ms")
	if hist == nil {
		t.Fatal("duration histogram missing")
	}
	h, ok := hist.Data.(metricdata.Histogram[float64])
	if !ok || len(h.DataPoints) == 0 || h.DataPoints[0].Count != 2 {
		t.Errorf("unexpected histogram data: %+v", hist.Data)
	}
}

func TestMiddleware_SuccessAndErrorPaths(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	metrics, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics failed: %v", err)
	}

	var logs bytes.Buffer
	mw := NewMiddleware(NewTracer(tp.Tracer("test")), metrics, NewLoggerWithWriter("debug", &logs))

	ok := modelres.NewKey("ns", "ok")
	bad := modelres.NewKey("ns", "bad")
	wantErr := modelres.NewError(modelres.KindMalformed, bad, errors.New("bad json"))

	wrapped := mw.Wrap(func(ctx context.Context, key modelres.Key) (modelres.Artifact, error) {
		if key == bad {
			return nil, wantErr
		}
		return "artifact:" + key.String(), nil
	})

	got, err := wrapped(context.Background(), ok)
	if err != nil || got != "artifact:ns:ok" {
		t.Fatalf("success path = %v, %v", got, err)
	}
	if _, err := wrapped(context.Background(), bad); err != wantErr {
		t.Fatalf("error path should return the original error, got %v", err)
	}

	if n := len(recorder.Ended()); n != 2 {
		t.Errorf("expected 2 spans, got %d", n)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	if got := sumOf(t, rm, "artifact.resolve.errors"); got != 1 {
		t.Errorf("errors = %d, want 1", got)
	}

	entries := decodeLines(t, &logs)
	if len(entries) != 2 {
		t.Fatalf("expected 2 log entries, got %d", len(entries))
	}
	if entries[1]["error_kind"] != "malformed" {
		t.Errorf("error_kind = %v", entries[1]["error_kind"])
	}
}

func TestMiddleware_NilComponentsAreNoops(t *testing.T) {
	mw := NewMiddleware(nil, nil, nil)
	got, err := mw.Wrap(func(context.Context, modelres.Key) (modelres.Artifact, error) {
		return 1, nil
	})(context.Background(), modelres.NewKey("ns", "a"))
	if err != nil || got != 1 {
		t.Errorf("got %v, %v", got, err)
	}
	if mw.Metrics() == nil {
		t.Error("Metrics() should not be nil")
	}
}
