package health

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrComponentDown is the cause recorded by built-in checks that find
	// a component past its critical limit.
	ErrComponentDown = errors.New("health: component past its critical limit")

	// ErrCheckTimeout is recorded when a check outlives the aggregator's
	// timeout. It matches context.DeadlineExceeded.
	ErrCheckTimeout = fmt.Errorf("health: check did not finish in time: %w", context.DeadlineExceeded)

	// ErrUnknownCheck is returned when no checker is registered under a
	// name.
	ErrUnknownCheck = errors.New("health: no checker registered")
)
