// Package health reports component health.
//
// A Checker reports Healthy, Degraded or Unhealthy. MemoryChecker watches
// heap usage and its UnderPressure method feeds the artifact cache janitor.
// CapacityChecker degrades when a bounded component such as the artifact
// cache fills up. Aggregator runs a set of checkers and folds their results
// into one Report:
//
//	mem := health.NewMemoryChecker(health.MemoryCheckerConfig{})
//	agg := health.NewAggregator()
//	agg.Register(mem, store.Checker())
//	report := agg.CheckAll(ctx)
package health
