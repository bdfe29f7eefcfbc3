// Package resource defines the keys, descriptors, artifacts and tagged errors
// shared by the resolution engine, plus the interfaces of its external
// collaborators (descriptor provider and existence probe).
package resource
