package store_test

import (
	"context"
	"fmt"

	"github.com/jonwraymond/modelbake/bake"
	"github.com/jonwraymond/modelbake/links"
	"github.com/jonwraymond/modelbake/override"
	"github.com/jonwraymond/modelbake/resolve"
	"github.com/jonwraymond/modelbake/resource"
	"github.com/jonwraymond/modelbake/store"
)

func Example() {
	torch := resource.NewKey("ns", "torch")
	provider := resource.ProviderFunc(func(_ context.Context, key resource.Key) (*resource.Descriptor, error) {
		if key == torch {
			return &resource.Descriptor{Key: torch}, nil
		}
		return nil, resource.NewError(resource.KindNotFound, key, nil)
	})
	pipeline := bake.NewPipeline(bake.BuilderFunc(func(_ context.Context, d *resource.Descriptor, _ resource.VertexLayout, _ resource.TextureResolver) (resource.Artifact, error) {
		return "baked " + d.Key.String(), nil
	}))

	overrides := override.NewRegistry()
	r := resolve.New(provider, pipeline, resolve.WithOverrides(overrides))

	lamp := resource.NewVariantKey("ns", "lamp", "lit")
	s, err := store.New(r.Resolve,
		store.WithOverrides(overrides),
		store.WithMissing("missing model", links.NewKeySet(lamp)),
	)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	ctx := context.Background()

	art, _ := s.Get(ctx, resource.NewVariantKey("ns", "torch", "inventory"))
	fmt.Println(art)

	art, _ = s.Get(ctx, lamp)
	fmt.Println(art)

	_, ok := s.Get(ctx, resource.NewKey("ns", "nothing"))
	fmt.Println("nothing found:", ok)

	_ = s.PutPermanent(resource.NewKey("ns", "nothing"), "hand-made")
	art, _ = s.Get(ctx, resource.NewKey("ns", "nothing"))
	fmt.Println(art, s.Keys())
	// Output:
	// baked ns:torch
	// missing model
	// nothing found: false
	// hand-made [ns:nothing]
}
