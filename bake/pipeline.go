package bake

import (
	"context"
	"sync"

	"github.com/jonwraymond/modelbake/observe"
	"github.com/jonwraymond/modelbake/resource"
)

// Builder turns a descriptor into an artifact.
//
// Contract:
// - Concurrency: NOT safe for concurrent use. The Pipeline serializes calls.
// - Errors: a failed build returns an error; it is not retried.
type Builder interface {
	Build(ctx context.Context, d *resource.Descriptor, layout resource.VertexLayout, textures resource.TextureResolver) (resource.Artifact, error)
}

// BuilderFunc adapts a function to Builder.
type BuilderFunc func(ctx context.Context, d *resource.Descriptor, layout resource.VertexLayout, textures resource.TextureResolver) (resource.Artifact, error)

// Build calls f.
func (f BuilderFunc) Build(ctx context.Context, d *resource.Descriptor, layout resource.VertexLayout, textures resource.TextureResolver) (resource.Artifact, error) {
	return f(ctx, d, layout, textures)
}

// Hook post-processes a freshly built artifact. It returns the artifact to
// use in its place; returning nil keeps the input artifact.
type Hook func(ctx context.Context, key resource.Key, d *resource.Descriptor, artifact resource.Artifact) resource.Artifact

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLocker makes the pipeline serialize builds on l. Pipelines sharing a
// builder must share a locker.
func WithLocker(l sync.Locker) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.lock = l
		}
	}
}

// WithTextures sets the texture resolver handed to the builder.
func WithTextures(t resource.TextureResolver) Option {
	return func(p *Pipeline) {
		p.textures = t
	}
}

// WithHooks appends hooks to the chain.
func WithHooks(hooks ...Hook) Option {
	return func(p *Pipeline) {
		p.hooks = append(p.hooks, hooks...)
	}
}

// WithTracer traces each build.
func WithTracer(t observe.Tracer) Option {
	return func(p *Pipeline) {
		if t != nil {
			p.tracer = t
		}
	}
}

// Pipeline runs the builder and the post-build hook chain under one lock.
type Pipeline struct {
	lock     sync.Locker
	builder  Builder
	textures resource.TextureResolver
	tracer   observe.Tracer

	hooksMu sync.RWMutex
	hooks   []Hook
}

// NewPipeline creates a pipeline around builder.
func NewPipeline(builder Builder, opts ...Option) *Pipeline {
	p := &Pipeline{
		lock:    &sync.Mutex{},
		builder: builder,
		tracer:  observe.NoopTracer(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// AddHook appends a hook to the chain. Hooks run in registration order.
func (p *Pipeline) AddHook(h Hook) {
	if h == nil {
		return
	}
	p.hooksMu.Lock()
	p.hooks = append(p.hooks, h)
	p.hooksMu.Unlock()
}

// Build builds d for key. A builder error, panic or nil artifact is reported
// as a resource.KindBuildFailure error.
func (p *Pipeline) Build(ctx context.Context, key resource.Key, d *resource.Descriptor, layout resource.VertexLayout) (art resource.Artifact, err error) {
	if p.builder == nil {
		return nil, resource.NewError(resource.KindBuildFailure, key, ErrNoBuilder)
	}
	if d == nil {
		return nil, resource.NewError(resource.KindBuildFailure, key, ErrNilDescriptor)
	}
	if layout == "" {
		layout = resource.LayoutItem
	}

	ctx, span := p.tracer.StartSpan(ctx, observe.OpBuild, key)
	defer func() { p.tracer.EndSpan(span, err) }()

	p.hooksMu.RLock()
	hooks := p.hooks
	p.hooksMu.RUnlock()

	p.lock.Lock()
	defer p.lock.Unlock()

	art, err = p.invoke(ctx, key, d, layout)
	if err != nil {
		return nil, err
	}

	if key == resource.MissingKey {
		return art, nil
	}
	for _, h := range hooks {
		if replaced := runHook(ctx, h, key, d, art); replaced != nil {
			art = replaced
		}
	}
	return art, nil
}

func (p *Pipeline) invoke(ctx context.Context, key resource.Key, d *resource.Descriptor, layout resource.VertexLayout) (art resource.Artifact, err error) {
	defer func() {
		if r := recover(); r != nil {
			art = nil
			err = resource.Errorf(resource.KindBuildFailure, key, "builder panicked: %v", r)
		}
	}()

	art, err = p.builder.Build(ctx, d, layout, p.textures)
	if err != nil {
		return nil, resource.NewError(resource.KindBuildFailure, key, err)
	}
	if art == nil {
		return nil, resource.NewError(resource.KindBuildFailure, key, ErrNilArtifact)
	}
	return art, nil
}

// runHook isolates a panicking hook: its replacement is discarded.
func runHook(ctx context.Context, h Hook, key resource.Key, d *resource.Descriptor, art resource.Artifact) (out resource.Artifact) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
		}
	}()
	return h(ctx, key, d, art)
}
