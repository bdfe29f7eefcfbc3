package resolve

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonwraymond/modelbake/bake"
	"github.com/jonwraymond/modelbake/links"
	"github.com/jonwraymond/modelbake/observe"
	"github.com/jonwraymond/modelbake/override"
	"github.com/jonwraymond/modelbake/resource"
)

// Option configures a Resolver.
type Option func(*Resolver)

// WithLinks shares a link table with the resolver. By default each resolver
// owns a private table.
func WithLinks(t *links.Table) Option {
	return func(r *Resolver) {
		if t != nil {
			r.links = t
		}
	}
}

// WithOverrides makes the resolver short-circuit registered overrides.
func WithOverrides(reg *override.Registry) Option {
	return func(r *Resolver) {
		r.overrides = reg
	}
}

// WithExists sets the existence probe used to classify alternate failures.
func WithExists(p resource.ExistsProbe) Option {
	return func(r *Resolver) {
		r.exists = p
	}
}

// WithOrder sets the trial order.
func WithOrder(o Order) Option {
	return func(r *Resolver) {
		r.order = o
	}
}

// WithVerbose logs every failed probe and the full error chain.
func WithVerbose(v bool) Option {
	return func(r *Resolver) {
		r.verbose = v
	}
}

// WithLogger sets the logger.
func WithLogger(l observe.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithLayout sets the vertex layout handed to the pipeline.
func WithLayout(layout resource.VertexLayout) Option {
	return func(r *Resolver) {
		if layout != "" {
			r.layout = layout
		}
	}
}

// Resolver turns keys into artifacts by probing the provider with the
// primary and alternate flavors of a key, learning variant links from
// wrapper descriptors and building the result.
//
// Contract:
//   - Concurrency: safe for concurrent use. Builds are serialized by the
//     pipeline, not by the resolver.
//   - Errors: failures are returned as *resource.Error values; Resolve never
//     panics on a provider or builder fault.
//   - Learned links are hints: a link that fails to resolve is skipped and
//     resolution continues as if it did not exist.
type Resolver struct {
	provider  resource.Provider
	pipeline  *bake.Pipeline
	links     *links.Table
	overrides *override.Registry
	exists    resource.ExistsProbe
	order     Order
	verbose   bool
	logger    observe.Logger
	layout    resource.VertexLayout
}

// New creates a Resolver.
func New(provider resource.Provider, pipeline *bake.Pipeline, opts ...Option) *Resolver {
	r := &Resolver{
		provider: provider,
		pipeline: pipeline,
		links:    links.NewTable(),
		logger:   observe.NopLogger(),
		layout:   resource.LayoutItem,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Links returns the resolver's link table.
func (r *Resolver) Links() *links.Table {
	return r.links
}

// Order returns the configured trial order.
func (r *Resolver) Order() Order {
	return r.order
}

// Resolve returns the artifact for key.
func (r *Resolver) Resolve(ctx context.Context, key resource.Key) (resource.Artifact, error) {
	if r.overrides != nil {
		if art, ok := r.overrides.Get(key); ok {
			return art, nil
		}
	}

	d, err := r.descriptor(ctx, key)
	if err != nil {
		r.logFailure(ctx, key, err)
		return nil, err
	}

	r.learn(ctx, key, d)

	if r.pipeline == nil {
		err := resource.NewError(resource.KindBuildFailure, key, bake.ErrNoBuilder)
		r.logFailure(ctx, key, err)
		return nil, err
	}
	art, err := r.pipeline.Build(ctx, key, d, r.layout)
	if err != nil {
		r.logFailure(ctx, key, err)
		return nil, err
	}
	return art, nil
}

// descriptor runs the probing state machine for key.
func (r *Resolver) descriptor(ctx context.Context, key resource.Key) (*resource.Descriptor, error) {
	if r.provider == nil {
		return nil, resource.Errorf(resource.KindUnknown, key, "no provider configured")
	}

	var (
		linked    resource.Key
		linkedErr error
	)
	if alt, ok := r.links.Lookup(key); ok && alt != key {
		d, err := r.probe(ctx, alt)
		if err == nil {
			return d, nil
		}
		r.logProbe(ctx, key, "learned link did not resolve", alt, err)
		linked, linkedErr = alt, err
	}

	alt := key.Alternate()
	if !key.IsPrimary() {
		return r.probe(ctx, key)
	}

	// The alternate is only re-probed when the learned link was not it.
	probeAlt := func() (*resource.Descriptor, error) {
		if linkedErr != nil && linked == alt {
			return nil, linkedErr
		}
		return r.probe(ctx, alt)
	}

	switch r.order {
	case AlternateFirst:
		d, altErr := probeAlt()
		if altErr == nil {
			return d, nil
		}
		r.logProbe(ctx, key, "alternate probe failed", alt, altErr)

		d, primaryErr := r.probe(ctx, key)
		if primaryErr == nil {
			return d, nil
		}
		r.logProbe(ctx, key, "primary probe failed", key, primaryErr)
		return r.reattempt(ctx, key, alt, primaryErr, altErr, false)

	default:
		d, primaryErr := r.probe(ctx, key)
		if primaryErr == nil {
			return d, nil
		}
		r.logProbe(ctx, key, "primary probe failed", key, primaryErr)

		d, altErr := probeAlt()
		if altErr == nil {
			return d, nil
		}
		r.logProbe(ctx, key, "alternate probe failed", alt, altErr)
		return r.reattempt(ctx, key, alt, primaryErr, altErr, true)
	}
}

// reattempt classifies a failed alternate probe. A definitely absent alternate
// surfaces the primary failure; an alternate that exists but errored earns
// key one more attempt in the alternate's context.
func (r *Resolver) reattempt(ctx context.Context, key, alt resource.Key, primaryErr, altErr error, plainRetry bool) (*resource.Descriptor, error) {
	if r.alternateAbsent(ctx, alt, altErr) {
		return nil, primaryErr
	}

	var (
		d   *resource.Descriptor
		err error
	)
	if ar, ok := r.provider.(resource.AliasResolver); ok {
		d, err = safeResolve(ctx, key, func(ctx context.Context) (*resource.Descriptor, error) {
			return ar.ResolveAlias(ctx, key, alt)
		})
		d, err = r.validate(key, d, err)
	} else if plainRetry {
		d, err = r.probe(ctx, key)
	} else {
		err = primaryErr
	}
	if err == nil {
		return d, nil
	}
	r.logProbe(ctx, key, "reattempt failed", key, err)
	return nil, resource.NewError(resource.KindAlternateProbe, key, altErr)
}

func (r *Resolver) alternateAbsent(ctx context.Context, alt resource.Key, err error) bool {
	if resource.IsNotFound(err) {
		return true
	}
	return r.exists != nil && !r.exists.Exists(ctx, alt)
}

// probe resolves k and validates the descriptor.
func (r *Resolver) probe(ctx context.Context, k resource.Key) (*resource.Descriptor, error) {
	d, err := safeResolve(ctx, k, func(ctx context.Context) (*resource.Descriptor, error) {
		return r.provider.Resolve(ctx, k)
	})
	return r.validate(k, d, err)
}

func (r *Resolver) validate(k resource.Key, d *resource.Descriptor, err error) (*resource.Descriptor, error) {
	switch {
	case err != nil:
		return nil, err
	case d == nil:
		return nil, resource.NewError(resource.KindNotFound, k, ErrNoDescriptor)
	case d.Missing && k != resource.MissingKey:
		return nil, resource.NewError(resource.KindNotFound, k, ErrMissingPlaceholder)
	case d.ParentMissing():
		return nil, resource.Errorf(resource.KindParentMissing, k, "parent %s", d.ParentKey)
	}
	return d, nil
}

// safeResolve converts a provider panic into an unclassified error.
func safeResolve(ctx context.Context, k resource.Key, fn func(context.Context) (*resource.Descriptor, error)) (d *resource.Descriptor, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			d = nil
			err = resource.Errorf(resource.KindUnknown, k, "provider panicked: %v", rec)
		}
	}()
	return fn(ctx)
}

// learn records dependent -> alternate links from a wrapper descriptor.
func (r *Resolver) learn(ctx context.Context, key resource.Key, d *resource.Descriptor) {
	if d == nil || !d.Wrapper {
		return
	}
	for _, dep := range d.Dependents {
		if dep.IsZero() || dep == key {
			continue
		}
		primary, alt := dep.PrimaryForm(), dep.Alternate()
		if primary == key {
			continue
		}
		if r.links.Learn(primary, alt) {
			r.logger.WithKey(primary).Debug(ctx, "learned variant link",
				observe.F("alternate", alt.String()),
				observe.F("learned_from", key.String()),
			)
		}
	}
}

func (r *Resolver) logProbe(ctx context.Context, key resource.Key, msg string, probed resource.Key, err error) {
	if !r.verbose {
		return
	}
	r.logger.WithKey(key).Warn(ctx, msg,
		observe.F("probed", probed.String()),
		observe.F("error_kind", resource.KindOf(err).String()),
		observe.F("error", err.Error()),
	)
}

func (r *Resolver) logFailure(ctx context.Context, key resource.Key, err error) {
	logger := r.logger.WithKey(key)
	kind := resource.KindOf(err).String()
	if !r.verbose {
		logger.Warn(ctx, fmt.Sprintf("unable to resolve %s (%s)", key, kind))
		return
	}
	logger.Error(ctx, "artifact resolution failed",
		observe.F("error_kind", kind),
		observe.F("error", err.Error()),
		observe.F("chain", errorChain(err)),
	)
}

// errorChain flattens err and its causes, outermost first.
func errorChain(err error) []string {
	var out []string
	for err != nil {
		out = append(out, err.Error())
		if joined, ok := err.(interface{ Unwrap() []error }); ok {
			for _, e := range joined.Unwrap() {
				out = append(out, errorChain(e)...)
			}
			break
		}
		err = errors.Unwrap(err)
	}
	return out
}
