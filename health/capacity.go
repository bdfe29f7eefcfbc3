package health

import (
	"context"
	"fmt"
)

// CapacityFunc reports how many slots of a bounded component are used.
type CapacityFunc func() (used, capacity int)

// CapacityChecker reports degraded once a bounded component fills up.
type CapacityChecker struct {
	name      string
	fn        CapacityFunc
	threshold float64
}

// NewCapacityChecker creates a checker that degrades when used/capacity
// reaches threshold. A threshold outside (0, 1] means 1.
func NewCapacityChecker(name string, threshold float64, fn CapacityFunc) *CapacityChecker {
	if threshold <= 0 || threshold > 1 {
		threshold = 1
	}
	return &CapacityChecker{name: name, fn: fn, threshold: threshold}
}

// Name returns the name of this checker.
func (c *CapacityChecker) Name() string {
	return c.name
}

// Check performs the capacity check.
func (c *CapacityChecker) Check(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return Unhealthy("context cancelled", err)
	}
	if c.fn == nil {
		return Unhealthy("no capacity source", ErrComponentDown)
	}

	used, capacity := c.fn()
	details := map[string]any{"used": used, "capacity": capacity}
	if capacity <= 0 {
		return Healthy("unbounded").WithDetails(details)
	}

	ratio := float64(used) / float64(capacity)
	details["usage_percent"] = ratio * 100
	msg := fmt.Sprintf("%d/%d entries", used, capacity)
	if ratio >= c.threshold {
		return Degraded(msg).WithDetails(details)
	}
	return Healthy(msg).WithDetails(details)
}
