package fsprovider

import (
	"context"
	"fmt"
	"maps"
	"strings"

	"github.com/jonwraymond/modelbake/bake"
	"github.com/jonwraymond/modelbake/resource"
)

// Model is the artifact produced by Builder.
type Model struct {
	Key     resource.Key
	Layout  resource.VertexLayout
	Missing bool

	// Chain lists the descriptor key followed by its resolved ancestors.
	Chain []resource.Key

	// Textures maps each slot to the handle returned by the texture
	// resolver, or to the texture key when there is none.
	Textures map[string]any

	// Properties merges document properties, children over parents.
	Properties map[string]any
}

// Builder returns a bake.Builder that flattens a descriptor chain into a
// Model. Child documents override their ancestors slot by slot.
func Builder() bake.Builder {
	return bake.BuilderFunc(build)
}

func build(_ context.Context, d *resource.Descriptor, layout resource.VertexLayout, textures resource.TextureResolver) (resource.Artifact, error) {
	m := &Model{
		Key:        d.Key,
		Layout:     layout,
		Missing:    d.Missing,
		Textures:   map[string]any{},
		Properties: map[string]any{},
	}

	var docs []*Document
	for cur := d; cur != nil; cur = cur.Parent {
		doc, ok := cur.Payload.(*Document)
		if !ok {
			return nil, fmt.Errorf("%w: %s has %T", ErrUnsupportedPayload, cur.Key, cur.Payload)
		}
		m.Chain = append(m.Chain, cur.Key)
		docs = append(docs, doc)
	}

	slots := map[string]string{}
	for i := len(docs) - 1; i >= 0; i-- {
		maps.Copy(slots, docs[i].Textures)
		maps.Copy(m.Properties, docs[i].Properties)
	}

	for slot := range slots {
		loc, err := followSlot(slots, slot)
		if err != nil {
			return nil, err
		}
		if loc == "" {
			continue
		}
		tex, err := resource.ParseKey(loc)
		if err != nil {
			return nil, fmt.Errorf("texture %q: %w", slot, err)
		}
		if textures != nil {
			m.Textures[slot] = textures(tex)
		} else {
			m.Textures[slot] = tex
		}
	}
	return m, nil
}

// followSlot resolves "#slot" references. A reference to an undefined slot
// yields "".
func followSlot(slots map[string]string, slot string) (string, error) {
	v := slots[slot]
	for hops := 0; strings.HasPrefix(v, "#"); hops++ {
		if hops > len(slots) {
			return "", fmt.Errorf("%w: %s", ErrTextureLoop, slot)
		}
		v = slots[strings.TrimPrefix(v, "#")]
	}
	return v, nil
}
