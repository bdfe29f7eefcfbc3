package resource

import "context"

// Descriptor is the parsed, unbuilt form of a resource.
//
// A descriptor may declare a parent. ParentKey names it; Parent holds the
// resolved parent or nil when it could not be found.
type Descriptor struct {
	// Key is the location the descriptor was resolved from.
	Key Key

	// ParentKey is the declared parent, zero when none.
	ParentKey Key

	// Parent is the resolved parent descriptor.
	Parent *Descriptor

	// Missing marks the missing placeholder descriptor.
	Missing bool

	// Wrapper marks a vanilla-wrapper descriptor whose Dependents may be
	// used to learn variant links.
	Wrapper bool

	// Dependents are the override locations declared by the descriptor.
	Dependents []Key

	// Payload is opaque content for the builder.
	Payload any
}

// ParentMissing reports whether a declared parent is absent or is itself
// the missing placeholder.
func (d *Descriptor) ParentMissing() bool {
	if d == nil || d.ParentKey.IsZero() {
		return false
	}
	return d.Parent == nil || d.Parent.Missing
}

// Artifact is an opaque, immutable built value.
type Artifact interface{}

// VertexLayout names the vertex format an artifact is built for.
type VertexLayout string

// LayoutItem is the vertex layout used for item-style artifacts.
const LayoutItem VertexLayout = "item"

// TextureResolver maps a texture location to a texture handle for the builder.
type TextureResolver func(texture Key) any

// Provider resolves descriptors.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: an absent resource must be reported as a *Error of KindNotFound
// (or an error wrapping fs.ErrNotExist); invalid content as KindMalformed.
type Provider interface {
	Resolve(ctx context.Context, key Key) (*Descriptor, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, key Key) (*Descriptor, error)

// Resolve calls f.
func (f ProviderFunc) Resolve(ctx context.Context, key Key) (*Descriptor, error) {
	return f(ctx, key)
}

// AliasResolver is implemented by providers that can resolve a primary key
// within the resolution context of its alternate key.
type AliasResolver interface {
	ResolveAlias(ctx context.Context, primary, alternate Key) (*Descriptor, error)
}

// ExistsProbe reports whether a resource exists. It is only used to classify
// failures.
type ExistsProbe interface {
	Exists(ctx context.Context, key Key) bool
}

// ExistsFunc adapts a function to ExistsProbe.
type ExistsFunc func(ctx context.Context, key Key) bool

// Exists calls f.
func (f ExistsFunc) Exists(ctx context.Context, key Key) bool {
	return f(ctx, key)
}
