// Package forkjoin runs the N sub-tasks of a fan-out stage on a bounded
// worker pool and merges their outcomes back in partition order.
//
// The pool size is a fixed bound independent of N, protecting downstream
// rate-limited collaborators. One task failing never aborts its siblings:
// every task produces an Outcome, success or failure, and the join stage
// decides what to do with the mixed list. Cancellation stops dispatch of
// tasks that have not started yet; tasks already running finish on their
// own terms.
package forkjoin
