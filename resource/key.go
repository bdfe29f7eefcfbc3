package resource

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultNamespace is used by ParseKey when the text form carries no namespace.
const DefaultNamespace = "minecraft"

// InventoryVariant is the variant given to bare locations when they are
// addressed as primary keys.
const InventoryVariant = "inventory"

// MissingKey identifies the missing placeholder model.
var MissingKey = Key{Namespace: "builtin", Path: "missing", Variant: "missing"}

// Key validation errors.
var (
	ErrEmptyNamespace = errors.New("resource: namespace is empty")
	ErrEmptyPath      = errors.New("resource: path is empty")
	ErrInvalidKey     = errors.New("resource: key contains reserved characters")
)

// Key identifies a requestable artifact.
//
// A key with a Variant is a primary key (block-state-like); a key without one
// is an alternate key (item-like). Keys are comparable values and can be used
// as map keys directly.
type Key struct {
	Namespace string
	Path      string
	Variant   string
}

// NewKey returns an alternate key.
func NewKey(namespace, path string) Key {
	return Key{Namespace: namespace, Path: path}
}

// NewVariantKey returns a primary key.
func NewVariantKey(namespace, path, variant string) Key {
	return Key{Namespace: namespace, Path: path, Variant: variant}
}

// ParseKey parses "namespace:path" or "namespace:path#variant".
// The namespace may be omitted, in which case DefaultNamespace is used.
func ParseKey(s string) (Key, error) {
	s = strings.TrimSpace(s)
	var k Key

	rest := s
	if i := strings.IndexByte(rest, '#'); i >= 0 {
		k.Variant = rest[i+1:]
		rest = rest[:i]
		if k.Variant == "" {
			return Key{}, fmt.Errorf("%w: empty variant in %q", ErrInvalidKey, s)
		}
	}

	if i := strings.IndexByte(rest, ':'); i >= 0 {
		k.Namespace = rest[:i]
		k.Path = rest[i+1:]
	} else {
		k.Namespace = DefaultNamespace
		k.Path = rest
	}

	if err := k.Validate(); err != nil {
		return Key{}, fmt.Errorf("parse %q: %w", s, err)
	}
	return k, nil
}

// MustParseKey is like ParseKey but panics on error.
func MustParseKey(s string) Key {
	k, err := ParseKey(s)
	if err != nil {
		panic(err)
	}
	return k
}

// Validate checks that the key is usable.
func (k Key) Validate() error {
	if k.Namespace == "" {
		return ErrEmptyNamespace
	}
	if k.Path == "" {
		return ErrEmptyPath
	}
	if strings.ContainsAny(k.Namespace, ":#\n\r") ||
		strings.ContainsAny(k.Path, ":#\n\r") ||
		strings.ContainsAny(k.Variant, "#\n\r") {
		return ErrInvalidKey
	}
	return nil
}

// IsZero reports whether k is the zero key.
func (k Key) IsZero() bool {
	return k == Key{}
}

// IsPrimary reports whether k carries a variant.
func (k Key) IsPrimary() bool {
	return k.Variant != ""
}

// Alternate returns the bare namespace+path form of k.
func (k Key) Alternate() Key {
	return Key{Namespace: k.Namespace, Path: k.Path}
}

// WithVariant returns a copy of k with the given variant.
func (k Key) WithVariant(variant string) Key {
	k.Variant = variant
	return k
}

// PrimaryForm returns k when it already carries a variant and the
// inventory variant of k otherwise.
func (k Key) PrimaryForm() Key {
	if k.IsPrimary() {
		return k
	}
	return k.WithVariant(InventoryVariant)
}

// SameResource reports whether k and other name the same namespace and path.
func (k Key) SameResource(other Key) bool {
	return k.Namespace == other.Namespace && k.Path == other.Path
}

// String returns the text form accepted by ParseKey.
func (k Key) String() string {
	if k.Variant == "" {
		return k.Namespace + ":" + k.Path
	}
	return k.Namespace + ":" + k.Path + "#" + k.Variant
}
