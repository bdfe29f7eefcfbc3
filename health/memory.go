package health

import (
	"context"
	"fmt"
	"runtime"
)

// MemoryCheckerConfig configures the memory health checker.
type MemoryCheckerConfig struct {
	// WarningThreshold is the heap usage ratio that triggers degraded status
	// and raises the pressure signal. Default: 0.8
	WarningThreshold float64

	// CriticalThreshold is the usage ratio that triggers unhealthy status.
	// Default: 0.95
	CriticalThreshold float64

	// MaxAlloc is the allocation budget in bytes. If zero, the memory
	// obtained from the OS is used.
	MaxAlloc uint64
}

// MemoryChecker checks memory usage. It doubles as the pressure signal
// for the artifact cache janitor.
type MemoryChecker struct {
	config    MemoryCheckerConfig
	readStats func(*runtime.MemStats)
}

// NewMemoryChecker creates a new memory health checker.
func NewMemoryChecker(config MemoryCheckerConfig) *MemoryChecker {
	if config.WarningThreshold <= 0 || config.WarningThreshold >= 1 {
		config.WarningThreshold = 0.8
	}
	if config.CriticalThreshold <= 0 || config.CriticalThreshold >= 1 {
		config.CriticalThreshold = 0.95
	}
	if config.CriticalThreshold < config.WarningThreshold {
		config.CriticalThreshold = config.WarningThreshold + 0.1
		if config.CriticalThreshold > 1 {
			config.CriticalThreshold = 0.99
		}
	}

	return &MemoryChecker{config: config, readStats: runtime.ReadMemStats}
}

// Name returns the name of this checker.
func (m *MemoryChecker) Name() string {
	return "memory"
}

// usage returns the heap usage ratio and the stats it was computed from.
// The ratio is zero when no budget is known.
func (m *MemoryChecker) usage() (float64, runtime.MemStats, uint64) {
	var stats runtime.MemStats
	m.readStats(&stats)

	maxAlloc := m.config.MaxAlloc
	if maxAlloc == 0 {
		maxAlloc = stats.Sys
	}
	if maxAlloc == 0 {
		return 0, stats, 0
	}
	return float64(stats.HeapAlloc) / float64(maxAlloc), stats, maxAlloc
}

// UnderPressure reports whether heap usage is at or above the warning
// threshold.
func (m *MemoryChecker) UnderPressure() bool {
	ratio, _, _ := m.usage()
	return ratio >= m.config.WarningThreshold
}

// Check performs the memory health check.
func (m *MemoryChecker) Check(ctx context.Context) Result {
	select {
	case <-ctx.Done():
		return Unhealthy("context cancelled", ctx.Err())
	default:
	}

	ratio, stats, maxAlloc := m.usage()
	if maxAlloc == 0 {
		return Healthy("memory stats unavailable")
	}

	details := map[string]any{
		"heap_alloc":    stats.HeapAlloc,
		"heap_objects":  stats.HeapObjects,
		"max_alloc":     maxAlloc,
		"usage_percent": ratio * 100,
		"num_gc":        stats.NumGC,
		"goroutines":    runtime.NumGoroutine(),
	}

	switch {
	case ratio >= m.config.CriticalThreshold:
		return Unhealthy(fmt.Sprintf("memory usage critical: %.1f%%", ratio*100), ErrComponentDown).WithDetails(details)
	case ratio >= m.config.WarningThreshold:
		return Degraded(fmt.Sprintf("memory usage high: %.1f%%", ratio*100)).WithDetails(details)
	default:
		return Healthy(fmt.Sprintf("memory usage normal: %.1f%%", ratio*100)).WithDetails(details)
	}
}
