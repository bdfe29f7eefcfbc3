// Package observe provides observability primitives for artifact resolution.
//
// It is a pure instrumentation library: structured logging, OpenTelemetry
// tracing and metrics, and a middleware that wraps a resolution function
// with all three. Exporter setup lives in observe/exporters.
package observe
