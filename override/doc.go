// Package override provides the registry of permanent artifact bindings
// that take precedence over cached and resolved artifacts.
package override
