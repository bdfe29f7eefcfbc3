package fsprovider

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/jonwraymond/modelbake/resource"
)

func TestBuilder_FlattensChain(t *testing.T) {
	ctx := context.Background()
	d, err := New(testPack()).Resolve(ctx, door)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	art, err := Builder().Build(ctx, d, resource.LayoutItem, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	m := art.(*Model)

	if m.Key != door || m.Layout != resource.LayoutItem {
		t.Errorf("model = %+v", m)
	}
	if len(m.Chain) != 2 || m.Chain[1] != resource.NewKey("ns", "block/door_base") {
		t.Errorf("Chain = %v", m.Chain)
	}
	want := map[string]resource.Key{
		"top":      resource.NewKey("ns", "block/door_top"),
		"bottom":   resource.NewKey("ns", "block/door_bottom"),
		"particle": resource.NewKey("ns", "block/door_bottom"),
	}
	for slot, tex := range want {
		if got := m.Textures[slot]; got != tex {
			t.Errorf("texture %s = %v, want %v", slot, got, tex)
		}
	}
	if ao, ok := m.Properties["ambient_occlusion"]; !ok || ao != false {
		t.Errorf("inherited property = %v, %v", ao, ok)
	}
}

func TestBuilder_TextureResolver(t *testing.T) {
	d := &resource.Descriptor{
		Key:     door,
		Payload: &Document{Textures: map[string]string{"all": "ns:block/oak"}},
	}
	var asked []resource.Key
	textures := func(k resource.Key) any {
		asked = append(asked, k)
		return "handle:" + k.String()
	}

	art, err := Builder().Build(context.Background(), d, resource.LayoutItem, textures)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got := art.(*Model).Textures["all"]; got != "handle:ns:block/oak" {
		t.Errorf("texture = %v", got)
	}
	if len(asked) != 1 {
		t.Errorf("resolver asked %d times, want 1", len(asked))
	}
}

func TestBuilder_ChildOverridesParent(t *testing.T) {
	pack := fstest.MapFS{
		"ns/models/child.yaml":  file("parent: ns:parent\ntextures: {all: ns:child}\n"),
		"ns/models/parent.yaml": file("textures: {all: ns:parent, side: ns:parent_side}\n"),
	}
	ctx := context.Background()
	d, err := New(pack).Resolve(ctx, resource.NewKey("ns", "child"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	art, err := Builder().Build(ctx, d, resource.LayoutItem, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	m := art.(*Model)
	if m.Textures["all"] != resource.NewKey("ns", "child") {
		t.Errorf("all = %v, want the child's texture", m.Textures["all"])
	}
	if m.Textures["side"] != resource.NewKey("ns", "parent_side") {
		t.Errorf("side = %v, want the inherited texture", m.Textures["side"])
	}
}

func TestBuilder_Errors(t *testing.T) {
	tests := []struct {
		name string
		d    *resource.Descriptor
		want error
	}{
		{
			name: "foreign payload",
			d:    &resource.Descriptor{Key: door, Payload: "raw"},
			want: ErrUnsupportedPayload,
		},
		{
			name: "texture loop",
			d: &resource.Descriptor{Key: door, Payload: &Document{
				Textures: map[string]string{"a": "#b", "b": "#a"},
			}},
			want: ErrTextureLoop,
		},
		{
			name: "bad texture key",
			d: &resource.Descriptor{Key: door, Payload: &Document{
				Textures: map[string]string{"a": "ns:block/a#"},
			}},
			want: resource.ErrInvalidKey,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Builder().Build(context.Background(), tt.d, resource.LayoutItem, nil)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestBuilder_UndefinedSlotReferenceIsDropped(t *testing.T) {
	d := &resource.Descriptor{Key: door, Payload: &Document{
		Textures: map[string]string{"particle": "#missing"},
	}}
	art, err := Builder().Build(context.Background(), d, resource.LayoutItem, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, ok := art.(*Model).Textures["particle"]; ok {
		t.Error("a reference to an undefined slot should be dropped")
	}
}
