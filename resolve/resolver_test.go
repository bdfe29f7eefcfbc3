package resolve

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/jonwraymond/modelbake/bake"
	"github.com/jonwraymond/modelbake/links"
	"github.com/jonwraymond/modelbake/observe"
	"github.com/jonwraymond/modelbake/override"
	"github.com/jonwraymond/modelbake/resource"
)

var (
	doorOpen   = resource.NewVariantKey("ns", "door", "open")
	doorClosed = resource.NewVariantKey("ns", "door", "closed")
	door       = resource.NewKey("ns", "door")
)

// fakeProvider serves descriptors and errors from maps and records calls.
type fakeProvider struct {
	mu     sync.Mutex
	descs  map[resource.Key]*resource.Descriptor
	errs   map[resource.Key]error
	calls  []resource.Key
	panics map[resource.Key]bool
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		descs:  make(map[resource.Key]*resource.Descriptor),
		errs:   make(map[resource.Key]error),
		panics: make(map[resource.Key]bool),
	}
}

func (p *fakeProvider) Resolve(_ context.Context, key resource.Key) (*resource.Descriptor, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, key)
	if p.panics[key] {
		panic("corrupt archive")
	}
	if err, ok := p.errs[key]; ok {
		return nil, err
	}
	if d, ok := p.descs[key]; ok {
		return d, nil
	}
	return nil, resource.NewError(resource.KindNotFound, key, nil)
}

func (p *fakeProvider) Calls() []resource.Key {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]resource.Key(nil), p.calls...)
}

func (p *fakeProvider) Reset() {
	p.mu.Lock()
	p.calls = nil
	p.mu.Unlock()
}

// aliasProvider adds alternate-context resolution.
type aliasProvider struct {
	*fakeProvider
	aliased map[resource.Key]*resource.Descriptor
	aliases []resource.Key
}

func (p *aliasProvider) ResolveAlias(_ context.Context, primary, alternate resource.Key) (*resource.Descriptor, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.aliases = append(p.aliases, alternate)
	if d, ok := p.aliased[primary]; ok {
		return d, nil
	}
	return nil, resource.NewError(resource.KindNotFound, primary, nil)
}

type built struct {
	from resource.Key
}

func newPipeline() *bake.Pipeline {
	return bake.NewPipeline(bake.BuilderFunc(func(_ context.Context, d *resource.Descriptor, _ resource.VertexLayout, _ resource.TextureResolver) (resource.Artifact, error) {
		return built{from: d.Key}, nil
	}))
}

func wrapper(key resource.Key, deps ...resource.Key) *resource.Descriptor {
	return &resource.Descriptor{Key: key, Wrapper: true, Dependents: deps}
}

func TestResolver_DoorScenario(t *testing.T) {
	p := newFakeProvider()
	p.descs[door] = wrapper(door, doorClosed)
	r := New(p, newPipeline())
	ctx := context.Background()

	art, err := r.Resolve(ctx, doorOpen)
	if err != nil {
		t.Fatalf("Resolve(%s) failed: %v", doorOpen, err)
	}
	if got := art.(built).from; got != door {
		t.Errorf("artifact built from %s, want %s", got, door)
	}

	alt, ok := r.Links().Lookup(doorClosed)
	if !ok || alt != door {
		t.Fatalf("link for %s = %v,%v, want %s", doorClosed, alt, ok, door)
	}

	p.Reset()
	if _, err := r.Resolve(ctx, doorClosed); err != nil {
		t.Fatalf("Resolve(%s) failed: %v", doorClosed, err)
	}
	calls := p.Calls()
	if len(calls) != 1 || calls[0] != door {
		t.Errorf("provider calls = %v, want only the learned alternate %s", calls, door)
	}
}

func TestResolver_ParentMissingFallsBackToAlternate(t *testing.T) {
	p := newFakeProvider()
	placeholder := &resource.Descriptor{Key: resource.MissingKey, Missing: true}
	p.descs[doorOpen] = &resource.Descriptor{
		Key:       doorOpen,
		ParentKey: resource.NewKey("ns", "block/door_base"),
		Parent:    placeholder,
	}
	p.descs[door] = &resource.Descriptor{Key: door}
	r := New(p, newPipeline())

	art, err := r.Resolve(context.Background(), doorOpen)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got := art.(built).from; got != door {
		t.Errorf("artifact built from %s, want alternate %s", got, door)
	}
	calls := p.Calls()
	if len(calls) != 2 || calls[0] != doorOpen || calls[1] != door {
		t.Errorf("provider calls = %v, want [%s %s]", calls, doorOpen, door)
	}
}

func TestResolver_ParentMissingWithoutAlternate(t *testing.T) {
	p := newFakeProvider()
	p.descs[doorOpen] = &resource.Descriptor{
		Key:       doorOpen,
		ParentKey: resource.NewKey("ns", "block/door_base"),
	}
	r := New(p, newPipeline())

	_, err := r.Resolve(context.Background(), doorOpen)
	if !errors.Is(err, resource.ErrParentMissing) {
		t.Fatalf("err = %v, want the primary parent-missing failure", err)
	}
}

func TestResolver_PrimaryFirst(t *testing.T) {
	p := newFakeProvider()
	p.descs[doorOpen] = &resource.Descriptor{Key: doorOpen}
	p.descs[door] = &resource.Descriptor{Key: door}
	r := New(p, newPipeline())

	art, err := r.Resolve(context.Background(), doorOpen)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got := art.(built).from; got != doorOpen {
		t.Errorf("built from %s, want %s", got, doorOpen)
	}
	if calls := p.Calls(); len(calls) != 1 {
		t.Errorf("provider calls = %v, want one primary probe", calls)
	}
}

func TestResolver_AlternateFirst(t *testing.T) {
	p := newFakeProvider()
	p.descs[doorOpen] = &resource.Descriptor{Key: doorOpen}
	p.descs[door] = &resource.Descriptor{Key: door}
	r := New(p, newPipeline(), WithOrder(AlternateFirst))

	art, err := r.Resolve(context.Background(), doorOpen)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got := art.(built).from; got != door {
		t.Errorf("built from %s, want %s", got, door)
	}

	delete(p.descs, door)
	p.Reset()
	art, err = r.Resolve(context.Background(), doorOpen)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got := art.(built).from; got != doorOpen {
		t.Errorf("built from %s, want %s", got, doorOpen)
	}
	calls := p.Calls()
	if len(calls) != 2 || calls[0] != door || calls[1] != doorOpen {
		t.Errorf("provider calls = %v, want [%s %s]", calls, door, doorOpen)
	}
}

func TestResolver_BothAbsentSurfacesPrimaryFailure(t *testing.T) {
	primaryErr := resource.Errorf(resource.KindNotFound, doorOpen, "no blockstate")
	for _, order := range []Order{PrimaryFirst, AlternateFirst} {
		t.Run(order.String(), func(t *testing.T) {
			p := newFakeProvider()
			p.errs[doorOpen] = primaryErr
			r := New(p, newPipeline(), WithOrder(order))

			art, err := r.Resolve(context.Background(), doorOpen)
			if art != nil {
				t.Errorf("expected no artifact, got %v", art)
			}
			if err != primaryErr {
				t.Errorf("err = %v, want the primary failure %v", err, primaryErr)
			}
		})
	}
}

func TestResolver_StaleLinkSelfHeals(t *testing.T) {
	p := newFakeProvider()
	p.descs[doorOpen] = &resource.Descriptor{Key: doorOpen}
	table := links.NewTable()
	table.Learn(doorOpen, resource.NewKey("ns", "gone"))
	r := New(p, newPipeline(), WithLinks(table))

	for i := 0; i < 2; i++ {
		art, err := r.Resolve(context.Background(), doorOpen)
		if err != nil {
			t.Fatalf("Resolve #%d failed: %v", i, err)
		}
		if got := art.(built).from; got != doorOpen {
			t.Errorf("Resolve #%d built from %s, want %s", i, got, doorOpen)
		}
	}
}

func TestResolver_StaleLinkEqualToAlternateProbedOnce(t *testing.T) {
	p := newFakeProvider()
	table := links.NewTable()
	table.Learn(doorOpen, door)
	r := New(p, newPipeline(), WithLinks(table))

	if _, err := r.Resolve(context.Background(), doorOpen); err == nil {
		t.Fatal("expected failure")
	}
	doorProbes := 0
	for _, k := range p.Calls() {
		if k == door {
			doorProbes++
		}
	}
	if doorProbes != 1 {
		t.Errorf("alternate probed %d times, want 1", doorProbes)
	}
}

func TestResolver_LearningIsIdempotent(t *testing.T) {
	p := newFakeProvider()
	p.descs[door] = wrapper(door, doorClosed, doorOpen)
	r := New(p, newPipeline())
	ctx := context.Background()

	if _, err := r.Resolve(ctx, doorOpen); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	before := r.Links().Snapshot()

	for i := 0; i < 3; i++ {
		art, err := r.Resolve(ctx, doorOpen)
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if got := art.(built).from; got != door {
			t.Errorf("built from %s, want %s", got, door)
		}
	}
	after := r.Links().Snapshot()
	if len(before) != len(after) {
		t.Fatalf("links changed: %v -> %v", before, after)
	}
	for k, v := range before {
		if after[k] != v {
			t.Errorf("link %s changed: %s -> %s", k, v, after[k])
		}
	}
	if _, ok := after[doorOpen]; ok {
		t.Error("the resolved key itself must not be learned")
	}
}

func TestResolver_LearnsInventoryVariantForBareDependent(t *testing.T) {
	p := newFakeProvider()
	torch := resource.NewKey("ns", "torch")
	p.descs[door] = wrapper(door, torch)
	r := New(p, newPipeline())

	if _, err := r.Resolve(context.Background(), doorOpen); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	inv := torch.WithVariant(resource.InventoryVariant)
	if alt, ok := r.Links().Lookup(inv); !ok || alt != torch {
		t.Errorf("link for %s = %v,%v, want %s", inv, alt, ok, torch)
	}
}

func TestResolver_NonWrapperLearnsNothing(t *testing.T) {
	p := newFakeProvider()
	p.descs[door] = &resource.Descriptor{Key: door, Dependents: []resource.Key{doorClosed}}
	r := New(p, newPipeline())

	if _, err := r.Resolve(context.Background(), doorOpen); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if n := r.Links().Len(); n != 0 {
		t.Errorf("links = %d, want 0", n)
	}
}

func TestResolver_MalformedAlternate(t *testing.T) {
	malformed := resource.Errorf(resource.KindMalformed, door, "bad json")

	t.Run("plain retry fails", func(t *testing.T) {
		p := newFakeProvider()
		p.errs[door] = malformed
		r := New(p, newPipeline())

		_, err := r.Resolve(context.Background(), doorOpen)
		if resource.KindOf(err) != resource.KindAlternateProbe {
			t.Fatalf("kind = %v, want alternate_probe (err %v)", resource.KindOf(err), err)
		}
		if !errors.Is(err, resource.ErrMalformed) {
			t.Errorf("err %v should wrap the alternate failure", err)
		}
		primaryProbes := 0
		for _, k := range p.Calls() {
			if k == doorOpen {
				primaryProbes++
			}
		}
		if primaryProbes != 2 {
			t.Errorf("primary probed %d times, want 2", primaryProbes)
		}
	})

	t.Run("alias reattempt succeeds", func(t *testing.T) {
		p := &aliasProvider{
			fakeProvider: newFakeProvider(),
			aliased:      map[resource.Key]*resource.Descriptor{doorOpen: {Key: doorOpen}},
		}
		p.errs[door] = malformed
		r := New(p, newPipeline())

		art, err := r.Resolve(context.Background(), doorOpen)
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if got := art.(built).from; got != doorOpen {
			t.Errorf("built from %s, want %s", got, doorOpen)
		}
		if len(p.aliases) != 1 || p.aliases[0] != door {
			t.Errorf("alias contexts = %v, want [%s]", p.aliases, door)
		}
	})

	t.Run("exists probe reports absent", func(t *testing.T) {
		p := newFakeProvider()
		p.errs[door] = malformed
		r := New(p, newPipeline(), WithExists(resource.ExistsFunc(func(context.Context, resource.Key) bool {
			return false
		})))

		_, err := r.Resolve(context.Background(), doorOpen)
		if resource.KindOf(err) != resource.KindNotFound {
			t.Errorf("kind = %v, want the primary not_found", resource.KindOf(err))
		}
	})
}

func TestResolver_ProviderPanicIsContained(t *testing.T) {
	p := newFakeProvider()
	p.panics[doorOpen] = true
	p.descs[door] = &resource.Descriptor{Key: door}
	r := New(p, newPipeline())

	art, err := r.Resolve(context.Background(), doorOpen)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got := art.(built).from; got != door {
		t.Errorf("built from %s, want %s", got, door)
	}
}

func TestResolver_BuildFailure(t *testing.T) {
	p := newFakeProvider()
	p.descs[doorOpen] = &resource.Descriptor{Key: doorOpen}
	pipeline := bake.NewPipeline(bake.BuilderFunc(func(context.Context, *resource.Descriptor, resource.VertexLayout, resource.TextureResolver) (resource.Artifact, error) {
		return nil, errors.New("atlas full")
	}))
	r := New(p, pipeline)

	art, err := r.Resolve(context.Background(), doorOpen)
	if art != nil || !errors.Is(err, resource.ErrBuildFailure) {
		t.Errorf("Resolve = %v, %v; want build failure", art, err)
	}
	if n := len(p.Calls()); n != 1 {
		t.Errorf("provider calls = %d, want 1 (no fallback after a build failure)", n)
	}
}

func TestResolver_OverrideShortCircuits(t *testing.T) {
	p := newFakeProvider()
	reg := override.NewRegistry()
	reg.Put(doorOpen, "custom")
	r := New(p, newPipeline(), WithOverrides(reg))

	art, err := r.Resolve(context.Background(), doorOpen)
	if err != nil || art != "custom" {
		t.Errorf("Resolve = %v, %v; want the override", art, err)
	}
	if n := len(p.Calls()); n != 0 {
		t.Errorf("provider calls = %d, want 0", n)
	}
}

func TestResolver_AlternateKeyProbedOnce(t *testing.T) {
	p := newFakeProvider()
	r := New(p, newPipeline())

	if _, err := r.Resolve(context.Background(), door); !errors.Is(err, resource.ErrNotFound) {
		t.Errorf("err = %v, want not found", err)
	}
	if calls := p.Calls(); len(calls) != 1 || calls[0] != door {
		t.Errorf("provider calls = %v, want [%s]", calls, door)
	}
}

func TestResolver_MissingPlaceholder(t *testing.T) {
	p := newFakeProvider()
	placeholder := &resource.Descriptor{Key: resource.MissingKey, Missing: true}
	p.descs[resource.MissingKey] = placeholder
	p.descs[door] = placeholder
	r := New(p, newPipeline())

	if _, err := r.Resolve(context.Background(), resource.MissingKey); err != nil {
		t.Errorf("the missing key itself must build: %v", err)
	}
	if _, err := r.Resolve(context.Background(), door); !errors.Is(err, ErrMissingPlaceholder) {
		t.Errorf("err = %v, want ErrMissingPlaceholder", err)
	}
}

func TestResolver_VerboseLogging(t *testing.T) {
	tests := []struct {
		verbose  bool
		wantLine int
		want     string
	}{
		{verbose: false, wantLine: 1, want: "unable to resolve ns:door#open (not_found)"},
		{verbose: true, wantLine: 3, want: `"chain"`},
	}

	for _, tt := range tests {
		var buf bytes.Buffer
		p := newFakeProvider()
		r := New(p, newPipeline(),
			WithVerbose(tt.verbose),
			WithLogger(observe.NewLoggerWithWriter("debug", &buf)),
		)

		art, err := r.Resolve(context.Background(), doorOpen)
		if art != nil || err == nil {
			t.Fatalf("verbose=%v: expected failure", tt.verbose)
		}

		out := strings.TrimSpace(buf.String())
		lines := strings.Split(out, "\n")
		if len(lines) != tt.wantLine {
			t.Errorf("verbose=%v: %d log lines, want %d:\n%s", tt.verbose, len(lines), tt.wantLine, out)
		}
		if !strings.Contains(out, tt.want) {
			t.Errorf("verbose=%v: log missing %q:\n%s", tt.verbose, tt.want, out)
		}
	}
}

func TestParseOrder(t *testing.T) {
	tests := []struct {
		in      string
		want    Order
		wantErr bool
	}{
		{"", PrimaryFirst, false},
		{"primary_first", PrimaryFirst, false},
		{"ALTERNATE_FIRST", AlternateFirst, false},
		{"alternate", AlternateFirst, false},
		{"sideways", PrimaryFirst, true},
	}
	for _, tt := range tests {
		got, err := ParseOrder(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseOrder(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseOrder(%q) = %v, want %v", tt.in, got, tt.want)
		}
		if tt.wantErr && !errors.Is(err, ErrInvalidOrder) {
			t.Errorf("ParseOrder(%q) err = %v, want ErrInvalidOrder", tt.in, err)
		}
	}
}
