package resolve

import "errors"

var (
	// ErrInvalidOrder is returned by ParseOrder for unknown values.
	ErrInvalidOrder = errors.New("resolve: invalid trial order")

	// ErrNoDescriptor is wrapped in a not-found error when a provider returns
	// neither a descriptor nor an error.
	ErrNoDescriptor = errors.New("resolve: provider returned no descriptor")

	// ErrMissingPlaceholder is wrapped in a not-found error when a provider
	// hands back the missing placeholder for a regular key.
	ErrMissingPlaceholder = errors.New("resolve: resolved to the missing placeholder")
)
