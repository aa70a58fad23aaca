// Package supervisor is the top-level driver of pipeline runs. It owns
// the run records and each run's execution context, executes stages in
// the registry's resolved order, routes fan-out stages through the
// fork-join executor, writes checkpoint snapshots to the partial-result
// cache, and drives guarded stages through the validator-retry
// controller.
//
// A run's non-fan-out stages execute strictly sequentially on one
// goroutine; the fork-join pool is the only place true parallelism
// happens within a run. Independent runs execute concurrently and share
// nothing but the cache, which is only touched through its atomic
// get/put interface.
package supervisor
