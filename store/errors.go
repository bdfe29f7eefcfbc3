package store

import "errors"

var (
	// ErrNilResolve is returned by New without a resolve function.
	ErrNilResolve = errors.New("store: resolve function is nil")

	// ErrNilArtifact is returned by PutPermanent for a nil artifact.
	ErrNilArtifact = errors.New("store: artifact is nil")
)
