// Package fsprovider serves descriptors from a YAML directory tree. Provider
// implements resource.Provider, resource.AliasResolver and
// resource.ExistsProbe.
//
// A pack looks like:
//
//	ns/models/block/door.yaml
//	ns/states/door.yaml
//
// where door.yaml under states maps variant names to documents:
//
//	variants:
//	  open:   {parent: "ns:block/door_open"}
//	  closed: {parent: "ns:block/door_closed"}
//
// Builder flattens a resolved chain into a Model, and Watcher drops cached
// artifacts when files under the pack change.
package fsprovider
