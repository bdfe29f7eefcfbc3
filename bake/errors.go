package bake

import "errors"

// Sentinel errors wrapped in resource.KindBuildFailure errors.
var (
	ErrNoBuilder     = errors.New("bake: no builder configured")
	ErrNilDescriptor = errors.New("bake: descriptor is nil")
	ErrNilArtifact   = errors.New("bake: builder returned no artifact")
)
