// Package runcache persists execution-context snapshots taken at
// checkpoint stages, keyed by run id, so a later enhancement run can
// resume downstream of an expensive upstream computation instead of
// repeating it.
//
// Entries are immutable once written; a later checkpoint of the same run
// stores a new entry under the run's key, and an enhancement run writes
// its checkpoints under its own run id, keeping the base run's entry
// intact as an audit trail. Lookup is exact-match only: a miss is
// ErrNotFound and the caller falls back to a fresh run.
//
// Eviction and TTL are owned by the backing store's deployment (table
// cleanup jobs, bucket lifecycle rules), not by this package.
package runcache
