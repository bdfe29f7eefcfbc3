package health

import (
	"context"
	"fmt"
	"maps"
	"time"
)

// Status grades a component. Values are ordered so that a larger Status is
// worse, which lets reports take the maximum.
type Status int

const (
	StatusHealthy Status = iota
	// StatusDegraded still serves lookups but is near a limit, such as a
	// full artifact cache.
	StatusDegraded
	StatusUnhealthy
)

var statusNames = [...]string{
	StatusHealthy:   "healthy",
	StatusDegraded:  "degraded",
	StatusUnhealthy: "unhealthy",
}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return "unknown"
	}
	return statusNames[s]
}

// ParseStatus is the inverse of Status.String.
func ParseStatus(name string) (Status, error) {
	for s, n := range statusNames {
		if n == name {
			return Status(s), nil
		}
	}
	return StatusUnhealthy, fmt.Errorf("health: unknown status %q", name)
}

// MarshalText renders the status name so reports encode readably.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a status name.
func (s *Status) UnmarshalText(b []byte) error {
	v, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Worst returns the worse of s and other.
func (s Status) Worst(other Status) Status {
	return max(s, other)
}

// Result is what a single check observed.
type Result struct {
	Status    Status
	Message   string
	Details   map[string]any
	Duration  time.Duration
	Timestamp time.Time
	Error     error
}

func newResult(s Status, message string, err error) Result {
	return Result{Status: s, Message: message, Error: err, Timestamp: time.Now()}
}

func Healthy(message string) Result  { return newResult(StatusHealthy, message, nil) }
func Degraded(message string) Result { return newResult(StatusDegraded, message, nil) }

// Unhealthy records the failure cause in Error; err may be nil.
func Unhealthy(message string, err error) Result {
	return newResult(StatusUnhealthy, message, err)
}

// WithDetails merges details into a copy of the result's details. Later
// keys win.
func (r Result) WithDetails(details map[string]any) Result {
	merged := make(map[string]any, len(r.Details)+len(details))
	maps.Copy(merged, r.Details)
	maps.Copy(merged, details)
	r.Details = merged
	return r
}

func (r Result) WithDuration(d time.Duration) Result {
	r.Duration = d
	return r
}

// Checker inspects one component of a running modelbake process.
// Check may be called concurrently and should return soon after ctx is
// done.
type Checker interface {
	Name() string
	Check(ctx context.Context) Result
}

// CheckerFunc names a plain function as a Checker.
type CheckerFunc struct {
	name string
	fn   func(context.Context) Result
}

func NewCheckerFunc(name string, fn func(context.Context) Result) *CheckerFunc {
	return &CheckerFunc{name: name, fn: fn}
}

func (f *CheckerFunc) Name() string { return f.name }

func (f *CheckerFunc) Check(ctx context.Context) Result { return f.fn(ctx) }
