// Package cache memoizes resolution results.
//
// MemoryCache is bounded by entry count (least recently used first, on
// hashicorp/golang-lru) and expires entries that have not been accessed for
// a while. Its janitor also sheds half the entries whenever the pressure
// signal is raised. Loading layers single-flight computation on top so one
// wave of lookups for a missing key runs exactly one load, and caches
// failed loads as negative entries.
package cache
