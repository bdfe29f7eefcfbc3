package observe

import "errors"

// Errors reported by Config.Validate. Each is wrapped with the offending
// value and the telemetry section it came from.
var (
	ErrNoServiceName   = errors.New("observe: telemetry needs a service name")
	ErrUnknownExporter = errors.New("observe: unknown exporter")
	ErrSampleRatio     = errors.New("observe: trace sample ratio must lie in [0, 1]")
	ErrUnknownLevel    = errors.New("observe: unknown log level")
)
