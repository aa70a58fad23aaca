package supervisor

import (
	"time"

	"github.com/vk/pipegrid/internal/validate"
)

// Status is the lifecycle state of a run.
type Status string

const (
	StatusPending            Status = "pending"
	StatusRunning            Status = "running"
	StatusAwaitingValidation Status = "awaiting_validation"
	StatusRetrying           Status = "retrying"
	StatusCompleted          Status = "completed"
	StatusFailed             Status = "failed"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Record is the externally visible state of one run. It is created when
// the run is submitted and mutated by the supervisor as stages complete;
// once Status turns terminal it never changes again.
type Record struct {
	RunID     string `json:"run_id"`
	Pipeline  string `json:"pipeline"`
	BaseRunID string `json:"base_run_id,omitempty"`

	Status Status `json:"status"`

	// CurrentStage indexes into the resolved execution order; StageName
	// names it. Both track progress for polling callers.
	CurrentStage int    `json:"current_stage"`
	StageName    string `json:"stage_name,omitempty"`
	StageCount   int    `json:"stage_count"`

	// Retries counts validator-triggered re-invocations across the run.
	Retries int `json:"retries"`

	// Warnings collects non-fatal degradations: tolerated fan-out
	// failures and exhausted validation retries.
	Warnings []string `json:"warnings,omitempty"`

	// LastValidation is the final failing validation result when a
	// guarded stage was accepted with warnings.
	LastValidation *validate.Result `json:"last_validation,omitempty"`

	// Error is set when the run fails and names the triggering error.
	Error string `json:"error,omitempty"`

	StartedAt   time.Time  `json:"started_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// clone returns a copy safe to hand to callers.
func (r Record) clone() Record {
	out := r
	if r.Warnings != nil {
		out.Warnings = append([]string(nil), r.Warnings...)
	}
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		out.CompletedAt = &t
	}
	return out
}
