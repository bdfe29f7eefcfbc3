// Package bake serializes artifact builds.
//
// The external builder mutates shared state and is not reentrant, so every
// Build call on a Pipeline runs behind one lock, whatever key or goroutine
// triggered it. After the builder returns, the post-build hook chain may
// replace the artifact with a decorated one. The chain is skipped for
// resource.MissingKey.
//
//	p := bake.NewPipeline(builder, bake.WithTextures(atlas.Lookup))
//	p.AddHook(func(ctx context.Context, key resource.Key, d *resource.Descriptor, a resource.Artifact) resource.Artifact {
//	    return emissive.Wrap(a)
//	})
//	art, err := p.Build(ctx, key, descriptor, resource.LayoutItem)
package bake
