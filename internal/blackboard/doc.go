// Package blackboard implements the execution context shared by the
// stages of one pipeline run: a named key/value store where every key is
// written exactly once by its producing stage and read by any later
// stage. Re-entering a stage (validation retries, enhancement re-runs)
// goes through an explicit Reset of the affected keys first, so no stage
// ever observes a mix of old and new values for the same key.
//
// A Board is owned by a single run. The supervisor serializes all writes;
// fan-out workers never touch the board directly, their merged outcomes
// are written once at the join barrier.
//
// Snapshots deep-copy the board through per-key JSON encoding. That makes
// JSON round-trippability the price of admission for checkpointed values,
// which is also exactly the guarantee the partial-result cache needs from
// its backing stores.
package blackboard
