package health

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// AggregatorConfig configures the health aggregator.
type AggregatorConfig struct {
	// Timeout bounds a whole CheckAll run. Default: 10 seconds
	Timeout time.Duration

	// Parallel runs health checks concurrently when true.
	Parallel bool
}

// NamedResult is one entry of a Report.
type NamedResult struct {
	Name string
	Result
}

// Report is the outcome of CheckAll, in registration order.
type Report struct {
	Status  Status
	Results []NamedResult
}

// Aggregator combines health checkers into a single composite check.
type Aggregator struct {
	config   AggregatorConfig
	mu       sync.RWMutex
	checkers map[string]Checker
	order    []string
}

// NewAggregator creates a new health aggregator. Without a config checks
// run in parallel with a 10 second timeout.
func NewAggregator(config ...AggregatorConfig) *Aggregator {
	cfg := AggregatorConfig{Timeout: 10 * time.Second, Parallel: true}
	if len(config) > 0 {
		cfg = config[0]
		if cfg.Timeout <= 0 {
			cfg.Timeout = 10 * time.Second
		}
	}
	return &Aggregator{config: cfg, checkers: make(map[string]Checker)}
}

// Register adds a checker under its own name.
func (a *Aggregator) Register(checkers ...Checker) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, c := range checkers {
		if c == nil {
			continue
		}
		name := c.Name()
		if _, exists := a.checkers[name]; !exists {
			a.order = append(a.order, name)
		}
		a.checkers[name] = c
	}
}

// CheckerNames returns the names of all registered checkers.
func (a *Aggregator) CheckerNames() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]string(nil), a.order...)
}

// Check runs a single named health check.
func (a *Aggregator) Check(ctx context.Context, name string) (Result, error) {
	a.mu.RLock()
	checker, ok := a.checkers[name]
	a.mu.RUnlock()

	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownCheck, name)
	}
	return runCheck(ctx, checker), nil
}

// CheckAll runs every registered check.
func (a *Aggregator) CheckAll(ctx context.Context) Report {
	a.mu.RLock()
	results := make([]NamedResult, len(a.order))
	checkers := make([]Checker, len(a.order))
	for i, name := range a.order {
		results[i].Name = name
		checkers[i] = a.checkers[name]
	}
	a.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()

	if a.config.Parallel {
		var wg sync.WaitGroup
		for i, c := range checkers {
			wg.Add(1)
			go func(i int, c Checker) {
				defer wg.Done()
				results[i].Result = runCheck(ctx, c)
			}(i, c)
		}
		wg.Wait()
	} else {
		for i, c := range checkers {
			results[i].Result = runCheck(ctx, c)
		}
	}

	return Report{Status: OverallStatus(results), Results: results}
}

// OverallStatus is the worst status among results; healthy when empty.
func OverallStatus(results []NamedResult) Status {
	overall := StatusHealthy
	for _, r := range results {
		overall = overall.Worst(r.Status)
	}
	return overall
}

func runCheck(ctx context.Context, checker Checker) Result {
	start := time.Now()
	resultCh := make(chan Result, 1)

	go func() {
		result := checker.Check(ctx)
		result.Duration = time.Since(start)
		if result.Timestamp.IsZero() {
			result.Timestamp = start
		}
		resultCh <- result
	}()

	select {
	case result := <-resultCh:
		return result
	case <-ctx.Done():
		return Result{
			Status:    StatusUnhealthy,
			Message:   "check timed out",
			Error:     ErrCheckTimeout,
			Duration:  time.Since(start),
			Timestamp: start,
		}
	}
}

// Checker exposes the aggregator as a single Checker.
func (a *Aggregator) Checker() Checker {
	return NewCheckerFunc("aggregate", func(ctx context.Context) Result {
		report := a.CheckAll(ctx)

		details := make(map[string]any, len(report.Results))
		for _, r := range report.Results {
			details[r.Name] = map[string]any{
				"status":  r.Status.String(),
				"message": r.Message,
			}
		}

		var message string
		switch report.Status {
		case StatusHealthy:
			message = "all checks passed"
		case StatusDegraded:
			message = "some checks degraded"
		default:
			message = "some checks failed"
		}
		return Result{Status: report.Status, Message: message, Details: details, Timestamp: time.Now()}
	})
}
