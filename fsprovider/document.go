package fsprovider

import (
	"bytes"
	"errors"
	"io"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

// Directory names below each namespace.
const (
	ModelsDir = "models"
	StatesDir = "states"
	Ext       = ".yaml"
)

// Document is one descriptor as stored on disk.
type Document struct {
	// Parent names the parent model, "namespace:path".
	Parent string `yaml:"parent,omitempty"`

	// Wrapper marks a document whose Dependents are used to learn links.
	Wrapper bool `yaml:"wrapper,omitempty"`

	// Dependents lists override locations, as key strings.
	Dependents []string `yaml:"dependents,omitempty"`

	// Textures maps texture slots to texture locations or to "#slot"
	// references to another slot.
	Textures map[string]string `yaml:"textures,omitempty"`

	// Properties is free-form content passed through to the built model.
	Properties map[string]any `yaml:"properties,omitempty"`
}

// stateFile lists the variants of one resource.
type stateFile struct {
	Variants map[string]Document `yaml:"variants"`
}

// decode strictly decodes data into out. Empty input leaves out untouched.
func decode(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ModelFile returns the slash-separated path of the model document for
// namespace:p, relative to the pack root.
func ModelFile(namespace, p string) string {
	return path.Join(namespace, ModelsDir, p+Ext)
}

// StateFile returns the path of the variants document for namespace:p.
func StateFile(namespace, p string) string {
	return path.Join(namespace, StatesDir, p+Ext)
}

// ResourceOf maps a slash-separated file path relative to the pack root
// back to its namespace and path. ok is false for files outside the
// layout.
func ResourceOf(rel string) (namespace, p string, ok bool) {
	parts := strings.SplitN(rel, "/", 3)
	if len(parts) != 3 || parts[0] == "" {
		return "", "", false
	}
	if parts[1] != ModelsDir && parts[1] != StatesDir {
		return "", "", false
	}
	if !strings.HasSuffix(parts[2], Ext) {
		return "", "", false
	}
	p = strings.TrimSuffix(parts[2], Ext)
	if p == "" {
		return "", "", false
	}
	return parts[0], p, true
}
