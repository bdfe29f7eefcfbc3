// Package resolve implements the two-tier key resolution algorithm.
//
// A lookup for a primary key K proceeds in order:
//
//  1. a registered override for K is returned as is;
//  2. a learned link K -> A is tried first and dropped silently when A no
//     longer resolves;
//  3. K itself is probed; a descriptor whose declared parent is absent is a
//     parent-missing failure;
//  4. the alternate A is probed. When A is definitely absent the failure of
//     K is returned. When A exists but failed, K gets one more attempt in
//     A's resolution context;
//  5. wrapper descriptors teach links for their dependents;
//  6. the descriptor is built by the bake pipeline.
//
// Steps 3 and 4 swap under AlternateFirst. Verbose mode logs every failed
// probe and the full error chain; control flow is the same.
package resolve
