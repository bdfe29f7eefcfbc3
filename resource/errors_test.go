package resource

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"
)

func TestKindOf(t *testing.T) {
	k := NewKey("ns", "door")

	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindUnknown},
		{"plain", errors.New("boom"), KindUnknown},
		{"tagged", NewError(KindMalformed, k, errors.New("bad json")), KindMalformed},
		{"wrapped tagged", fmt.Errorf("load: %w", NewError(KindNotFound, k, nil)), KindNotFound},
		{"sentinel", fmt.Errorf("load: %w", ErrParentMissing), KindParentMissing},
		{"fs not exist", fmt.Errorf("open: %w", fs.ErrNotExist), KindNotFound},
		{"outermost wins", NewError(KindAlternateProbe, k, NewError(KindNotFound, k, nil)), KindAlternateProbe},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestError_Is(t *testing.T) {
	err := NewError(KindBuildFailure, NewKey("ns", "door"), errors.New("atlas full"))

	if !errors.Is(err, ErrBuildFailure) {
		t.Error("build failure should match ErrBuildFailure")
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("build failure should not match ErrNotFound")
	}
	if got := err.Error(); got != "resource ns:door: build_failure: atlas full" {
		t.Errorf("Error() = %q", got)
	}
}

func TestIsNotFound(t *testing.T) {
	k := NewKey("ns", "door")
	if !IsNotFound(NewError(KindParentMissing, k, nil)) {
		t.Error("parent missing should count as not found")
	}
	if IsNotFound(NewError(KindMalformed, k, nil)) {
		t.Error("malformed should not count as not found")
	}
}
