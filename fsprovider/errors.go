package fsprovider

import "errors"

// Sentinel errors wrapped in resource errors.
var (
	ErrParentTooDeep      = errors.New("fsprovider: parent chain too deep")
	ErrUnknownVariant     = errors.New("fsprovider: variant not declared")
	ErrUnsupportedPayload = errors.New("fsprovider: descriptor payload is not a document")
	ErrTextureLoop        = errors.New("fsprovider: texture reference loop")
	ErrNilInvalidate      = errors.New("fsprovider: invalidate func is nil")
)
