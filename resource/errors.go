package resource

import (
	"errors"
	"fmt"
	"io/fs"
)

// Kind classifies a resolution failure.
type Kind int

const (
	// KindUnknown is an unclassified failure. It is treated as non-recoverable.
	KindUnknown Kind = iota
	// KindNotFound means no descriptor exists for the key.
	KindNotFound
	// KindMalformed means the descriptor exists but its content is invalid.
	KindMalformed
	// KindParentMissing means a declared parent is absent or a placeholder.
	KindParentMissing
	// KindBuildFailure means the external builder failed.
	KindBuildFailure
	// KindAlternateProbe wraps an error raised while probing the alternate key.
	KindAlternateProbe
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindMalformed:
		return "malformed"
	case KindParentMissing:
		return "parent_missing"
	case KindBuildFailure:
		return "build_failure"
	case KindAlternateProbe:
		return "alternate_probe"
	default:
		return "unknown"
	}
}

// Sentinel errors, one per kind. A *Error matches the sentinel of its kind
// with errors.Is.
var (
	ErrNotFound       = errors.New("resource: not found")
	ErrMalformed      = errors.New("resource: malformed descriptor")
	ErrParentMissing  = errors.New("resource: parent missing")
	ErrBuildFailure   = errors.New("resource: build failed")
	ErrAlternateProbe = errors.New("resource: alternate probe failed")
)

var kindSentinels = map[Kind]error{
	KindNotFound:       ErrNotFound,
	KindMalformed:      ErrMalformed,
	KindParentMissing:  ErrParentMissing,
	KindBuildFailure:   ErrBuildFailure,
	KindAlternateProbe: ErrAlternateProbe,
}

// Error is a tagged resolution error.
type Error struct {
	Kind Kind
	Key  Key
	Err  error
}

// NewError returns a tagged error for key.
func NewError(kind Kind, key Key, err error) *Error {
	return &Error{Kind: kind, Key: key, Err: err}
}

// Errorf returns a tagged error with a formatted cause.
func Errorf(kind Kind, key Key, format string, args ...any) *Error {
	return &Error{Kind: kind, Key: key, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("resource %s: %s", e.Key, e.Kind)
	}
	return fmt.Sprintf("resource %s: %s: %v", e.Key, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel error of e's kind.
func (e *Error) Is(target error) bool {
	sentinel, ok := kindSentinels[e.Kind]
	return ok && target == sentinel
}

// KindOf returns the kind of the outermost tagged error in err's chain.
// Errors wrapping fs.ErrNotExist are classified as KindNotFound.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	for kind, sentinel := range kindSentinels {
		if errors.Is(err, sentinel) {
			return kind
		}
	}
	if errors.Is(err, fs.ErrNotExist) {
		return KindNotFound
	}
	return KindUnknown
}

// IsNotFound reports whether err signals an absent resource. A missing
// parent counts as absent.
func IsNotFound(err error) bool {
	switch KindOf(err) {
	case KindNotFound, KindParentMissing:
		return true
	default:
		return false
	}
}
