package fsprovider

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/jonwraymond/modelbake/observe"
	"github.com/jonwraymond/modelbake/resource"
)

// DefaultMaxParentDepth bounds parent chains.
const DefaultMaxParentDepth = 16

// Option configures a Provider.
type Option func(*Provider)

// WithMaxParentDepth bounds how many parents are followed. Deeper chains,
// including cycles, are malformed.
func WithMaxParentDepth(n int) Option {
	return func(p *Provider) {
		if n > 0 {
			p.maxDepth = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l observe.Logger) Option {
	return func(p *Provider) {
		if l != nil {
			p.logger = l
		}
	}
}

// Provider resolves descriptors from a directory tree:
//
//	<namespace>/models/<path>.yaml   one Document per alternate key
//	<namespace>/states/<path>.yaml   a variants map for primary keys
//
// Contract:
//   - Concurrency: safe for concurrent use; every call reads the tree.
//   - Errors: absent files and undeclared variants are KindNotFound,
//     undecodable documents and bad key strings are KindMalformed.
//   - An absent parent leaves Descriptor.Parent nil.
type Provider struct {
	fsys     fs.FS
	maxDepth int
	logger   observe.Logger
}

// New creates a provider over fsys.
func New(fsys fs.FS, opts ...Option) *Provider {
	p := &Provider{
		fsys:     fsys,
		maxDepth: DefaultMaxParentDepth,
		logger:   observe.NopLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewDir creates a provider over the directory root.
func NewDir(root string, opts ...Option) *Provider {
	return New(os.DirFS(root), opts...)
}

// Resolve implements resource.Provider.
func (p *Provider) Resolve(ctx context.Context, key resource.Key) (*resource.Descriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if key == resource.MissingKey {
		return missingDescriptor(), nil
	}
	doc, err := p.document(key)
	if err != nil {
		return nil, err
	}
	return p.describe(ctx, key, doc, 0)
}

// ResolveAlias implements resource.AliasResolver. The variant of primary is
// used when declared; otherwise the model of alternate is served under the
// primary key.
func (p *Provider) ResolveAlias(ctx context.Context, primary, alternate resource.Key) (*resource.Descriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := p.document(primary)
	if resource.IsNotFound(err) {
		doc, err = p.document(alternate)
	}
	if err != nil {
		return nil, err
	}
	return p.describe(ctx, primary, doc, 0)
}

// Exists implements resource.ExistsProbe. A primary key exists when its
// variants file does.
func (p *Provider) Exists(_ context.Context, key resource.Key) bool {
	if key == resource.MissingKey {
		return true
	}
	if !fs.ValidPath(key.Namespace + "/" + key.Path) {
		return false
	}
	_, err := fs.Stat(p.fsys, fileFor(key))
	return err == nil
}

func fileFor(key resource.Key) string {
	if key.IsPrimary() {
		return StateFile(key.Namespace, key.Path)
	}
	return ModelFile(key.Namespace, key.Path)
}

// document loads the raw document for key.
func (p *Provider) document(key resource.Key) (*Document, error) {
	if err := key.Validate(); err != nil {
		return nil, resource.NewError(resource.KindMalformed, key, err)
	}

	if !fs.ValidPath(key.Namespace + "/" + key.Path) {
		return nil, resource.Errorf(resource.KindNotFound, key, "%w: %q", fs.ErrInvalid, key.Path)
	}

	name := fileFor(key)
	data, err := fs.ReadFile(p.fsys, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrInvalid) {
			return nil, resource.NewError(resource.KindNotFound, key, err)
		}
		return nil, resource.NewError(resource.KindUnknown, key, err)
	}

	if !key.IsPrimary() {
		var doc Document
		if err := decode(data, &doc); err != nil {
			return nil, resource.NewError(resource.KindMalformed, key, fmt.Errorf("%s: %w", name, err))
		}
		return &doc, nil
	}

	var states stateFile
	if err := decode(data, &states); err != nil {
		return nil, resource.NewError(resource.KindMalformed, key, fmt.Errorf("%s: %w", name, err))
	}
	doc, ok := states.Variants[key.Variant]
	if !ok {
		return nil, resource.NewError(resource.KindNotFound, key, fmt.Errorf("%w: %q in %s", ErrUnknownVariant, key.Variant, name))
	}
	return &doc, nil
}

// describe turns doc into a descriptor and resolves its parent chain.
func (p *Provider) describe(ctx context.Context, key resource.Key, doc *Document, depth int) (*resource.Descriptor, error) {
	d := &resource.Descriptor{
		Key:     key,
		Wrapper: doc.Wrapper,
		Payload: doc,
	}

	for _, s := range doc.Dependents {
		dep, err := resource.ParseKey(s)
		if err != nil {
			return nil, resource.NewError(resource.KindMalformed, key, fmt.Errorf("dependent: %w", err))
		}
		d.Dependents = append(d.Dependents, dep)
	}

	if doc.Parent == "" {
		return d, nil
	}
	parentKey, err := resource.ParseKey(doc.Parent)
	if err != nil {
		return nil, resource.NewError(resource.KindMalformed, key, fmt.Errorf("parent: %w", err))
	}
	d.ParentKey = parentKey

	if depth >= p.maxDepth {
		return nil, resource.Errorf(resource.KindMalformed, key, "%w: limit %d", ErrParentTooDeep, p.maxDepth)
	}
	if parentKey == resource.MissingKey {
		d.Parent = missingDescriptor()
		return d, nil
	}

	parentDoc, err := p.document(parentKey)
	switch {
	case resource.IsNotFound(err):
		p.logger.WithKey(key).Debug(ctx, "parent not found", observe.F("parent", parentKey.String()))
		return d, nil
	case err != nil:
		return nil, err
	}

	parent, err := p.describe(ctx, parentKey, parentDoc, depth+1)
	if err != nil {
		return nil, err
	}
	d.Parent = parent
	return d, nil
}

func missingDescriptor() *resource.Descriptor {
	return &resource.Descriptor{
		Key:     resource.MissingKey,
		Missing: true,
		Payload: &Document{},
	}
}
