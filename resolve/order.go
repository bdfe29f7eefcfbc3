package resolve

import (
	"fmt"
	"strings"
)

// Order selects which key flavor is probed first.
type Order int

const (
	// PrimaryFirst probes the variant key, then its alternate.
	PrimaryFirst Order = iota
	// AlternateFirst probes the bare alternate key, then the variant key.
	AlternateFirst
)

func (o Order) String() string {
	switch o {
	case AlternateFirst:
		return "alternate_first"
	default:
		return "primary_first"
	}
}

// ParseOrder parses "primary_first" or "alternate_first". The empty string
// maps to PrimaryFirst.
func ParseOrder(s string) (Order, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "primary_first", "primary":
		return PrimaryFirst, nil
	case "alternate_first", "alternate":
		return AlternateFirst, nil
	default:
		return PrimaryFirst, fmt.Errorf("%w: %q", ErrInvalidOrder, s)
	}
}
