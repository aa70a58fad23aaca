package runcache

import (
	"context"
	"errors"
	"time"

	"github.com/vk/pipegrid/internal/blackboard"
)

// ErrNotFound is returned by Get when no checkpoint exists for a run id.
var ErrNotFound = errors.New("no cached checkpoint for run")

// Entry is one checkpoint: a deep snapshot of the execution context after
// a named stage completed.
type Entry struct {
	RunID    string `json:"run_id"`
	Pipeline string `json:"pipeline"`

	// BaseRunID and Seq are set on entries written by enhancement runs:
	// BaseRunID names the run the enhancement resumed from and Seq counts
	// enhancement generations (base run entries have Seq 0).
	BaseRunID string `json:"base_run_id,omitempty"`
	Seq       int    `json:"seq,omitempty"`

	// Stage is the checkpoint stage; resumption starts at the stage
	// immediately after it.
	Stage string `json:"stage"`

	Context   blackboard.Snapshot `json:"context"`
	CreatedAt time.Time           `json:"created_at"`
}

// Store is the backing key-value store for checkpoint entries. Get must
// return ErrNotFound (possibly wrapped) on a miss. Put for different run
// ids must not block each other; a run only ever checkpoints linearly, so
// same-key writes are naturally single-writer.
type Store interface {
	Get(ctx context.Context, runID string) (*Entry, error)
	Put(ctx context.Context, runID string, entry *Entry) error
	Delete(ctx context.Context, runID string) error
}
