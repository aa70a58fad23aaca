package config

import "time"

// Model is the unified, format-agnostic representation of every pipeline
// definition loaded from disk.
type Model struct {
	Pipelines map[string]*Pipeline
}

// Pipeline is the format-agnostic representation of a `pipeline` block.
type Pipeline struct {
	Name string

	// MaxConcurrency bounds the number of fan-out tasks running at once.
	// It is a fixed bound, independent of partition size, so downstream
	// rate-limited collaborators are never overwhelmed.
	MaxConcurrency int

	// FailureTolerance is the fraction of fan-out tasks that may fail
	// before the whole run is failed at the join. A failed fraction at or
	// below the tolerance proceeds with partial results and a warning.
	FailureTolerance float64

	// Defaults are seed values merged into a new execution context before
	// the caller's initial inputs, so manifests can carry static partition
	// lists and similar fixtures.
	Defaults map[string]any

	// Stages in declaration order. Execution order is determined by the
	// registry's topological resolve, with declaration order as the
	// tie-breaker so resolves are deterministic.
	Stages []*Stage
}

// Stage is the format-agnostic representation of a `stage` block.
type Stage struct {
	Name    string
	Handler string

	// Inputs are the context keys the stage reads; Outputs the keys it
	// writes. A stage may only write its declared outputs.
	Inputs  []string
	Outputs []string

	// DependsOn lists stage names that must complete first. Dependencies
	// implied by Inputs (another stage's Outputs) are added automatically
	// by the registry.
	DependsOn []string

	// FanOutKey, when non-empty, names a context key holding a partition
	// list. The stage's handler is invoked once per partition item through
	// the fork-join executor.
	FanOutKey string

	// Checkpoint marks the stage as a snapshot point: after it completes,
	// the execution context is written to the partial-result cache.
	Checkpoint bool

	// Validator names a registered validator function guarding this
	// stage's output. Empty means the stage is not validated.
	Validator string

	// MaxRetries caps how many times a failed validation re-invokes the
	// stage. The default of 1 means at most two total attempts.
	MaxRetries int

	// Timeout bounds a single invocation of the stage (or of each fan-out
	// task). Zero means no timeout.
	Timeout time.Duration
}

// Validated reports whether the stage is guarded by a validator.
func (s *Stage) Validated() bool { return s.Validator != "" }

// FansOut reports whether the stage runs through the fork-join executor.
func (s *Stage) FansOut() bool { return s.FanOutKey != "" }
