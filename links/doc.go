// Package links holds the process-wide variant link table learned during
// resolution, and the key set of resources that fall back to the missing
// sentinel.
package links
