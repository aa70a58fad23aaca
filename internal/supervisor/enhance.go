package supervisor

import (
	"context"
	"fmt"

	"github.com/vk/pipegrid/internal/blackboard"
)

// Enhance starts an enhancement re-run: it restores the most recent
// checkpoint of baseRunID, clears exactly the output keys of every stage
// strictly after the checkpoint stage, applies overrides on top, and
// resumes execution from the stage immediately following the checkpoint.
// It returns the new run's id; the base run's record and cache entry are
// left untouched.
//
// When baseRunID has no checkpoint, the error wraps runcache.ErrNotFound
// and the caller must fall back to a fresh Submit.
func (s *Supervisor) Enhance(ctx context.Context, baseRunID string, overrides map[string]any) (string, error) {
	entry, err := s.cache.Get(ctx, baseRunID)
	if err != nil {
		return "", err
	}

	order, err := s.registry.Resolve(entry.Pipeline)
	if err != nil {
		return "", err
	}
	checkpointIdx := -1
	for i, stage := range order {
		if stage.Name == entry.Stage {
			checkpointIdx = i
			break
		}
	}
	if checkpointIdx < 0 {
		return "", fmt.Errorf("checkpoint stage %q no longer exists in pipeline %q", entry.Stage, entry.Pipeline)
	}

	board, err := blackboard.Restore(entry.Context)
	if err != nil {
		return "", fmt.Errorf("restore checkpoint of run %q: %w", baseRunID, err)
	}

	// Clear the full downstream output set before applying overrides, so
	// no stage can observe a mix of old and new values for the same key.
	for _, stage := range order[checkpointIdx+1:] {
		board.Reset(stage.Outputs...)
	}
	for k, v := range overrides {
		board.Reset(k)
		if err := board.Set(k, v); err != nil {
			return "", fmt.Errorf("apply override %q: %w", k, err)
		}
	}

	st := s.newRun(entry.Pipeline, baseRunID, entry.Seq+1, board, len(order))
	s.start(st, order, checkpointIdx+1)
	return st.rec.RunID, nil
}

// EnhanceWait is the synchronous variant of Enhance.
func (s *Supervisor) EnhanceWait(ctx context.Context, baseRunID string, overrides map[string]any) (Record, error) {
	runID, err := s.Enhance(ctx, baseRunID, overrides)
	if err != nil {
		return Record{}, err
	}
	return s.Wait(ctx, runID)
}
