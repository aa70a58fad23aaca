package supervisor

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/vk/pipegrid/internal/config"
	"github.com/vk/pipegrid/internal/ctxlog"
	"github.com/vk/pipegrid/internal/forkjoin"
	"github.com/vk/pipegrid/internal/registry"
	"github.com/vk/pipegrid/internal/runcache"
	"github.com/vk/pipegrid/internal/validate"
)

// execute runs the stages of order starting at startIdx and drives the
// record to a terminal status.
func (s *Supervisor) execute(ctx context.Context, st *run, order []*config.Stage, startIdx int) {
	logger := ctxlog.FromContext(ctx)
	p, _ := s.registry.Pipeline(st.rec.Pipeline)

	st.setStatus(StatusRunning)
	logger.Info("Run started.", "stages", len(order), "startIndex", startIdx)

	for i := startIdx; i < len(order); i++ {
		// Cancellation is checked at every stage boundary.
		if err := ctx.Err(); err != nil {
			s.fail(st, fmt.Errorf("%w: %v", ErrRunCanceled, err))
			return
		}

		stage := order[i]
		st.enterStage(i, stage.Name)
		stageLogger := logger.With("stage", stage.Name, "index", i)
		stageLogger.Debug("Stage starting.")

		var err error
		switch {
		case stage.FansOut():
			err = s.runFanOut(ctx, st, p, stage)
		case stage.Validated():
			err = s.runGuarded(ctx, st, stage)
		default:
			err = s.runPlain(ctx, st, stage, nil)
		}
		if err != nil {
			stageLogger.Error("Stage failed.", "error", err)
			s.fail(st, err)
			return
		}

		if stage.Checkpoint {
			if err := s.checkpoint(ctx, st, stage); err != nil {
				stageLogger.Error("Checkpoint failed.", "error", err)
				s.fail(st, err)
				return
			}
			stageLogger.Info("Checkpoint written.")
		}
		stageLogger.Debug("Stage complete.")
	}

	st.complete()
	logger.Info("Run completed.")
}

// runPlain invokes a stage handler once and merges its outputs.
func (s *Supervisor) runPlain(ctx context.Context, st *run, stage *config.Stage, feedback map[string]any) error {
	fn, ok := s.registry.Handler(stage.Handler)
	if !ok {
		return &StageError{Stage: stage.Name, Err: fmt.Errorf("handler %q not registered", stage.Handler)}
	}
	in := registry.StageInput{Values: st.board.Values(), Feedback: feedback}
	out, err := invokeWithTimeout(ctx, stage.Timeout, func(ctx context.Context) (map[string]any, error) {
		return fn(ctx, in)
	})
	if err != nil {
		return &StageError{Stage: stage.Name, Err: err}
	}
	return s.mergeOutputs(st, stage, out)
}

// runFanOut reads the partition list, dispatches one task per item on
// the bounded pool, applies the join policy, and writes the ordered
// outcome list under the stage's single output key.
func (s *Supervisor) runFanOut(ctx context.Context, st *run, p *config.Pipeline, stage *config.Stage) error {
	logger := ctxlog.FromContext(ctx)

	raw, ok := st.board.Get(stage.FanOutKey)
	if !ok {
		return &StageError{Stage: stage.Name, Err: fmt.Errorf("fan-out key %q not present in context", stage.FanOutKey)}
	}
	items, err := partitionItems(raw)
	if err != nil {
		return &StageError{Stage: stage.Name, Err: fmt.Errorf("fan-out key %q: %w", stage.FanOutKey, err)}
	}

	fn, ok := s.registry.Handler(stage.Handler)
	if !ok {
		return &StageError{Stage: stage.Name, Err: fmt.Errorf("handler %q not registered", stage.Handler)}
	}
	values := st.board.Values()

	outcomes := forkjoin.Run(ctx, items, func(ctx context.Context, item any) (any, error) {
		return fn(ctx, registry.StageInput{Values: values, Item: item})
	}, forkjoin.Options{
		MaxConcurrency: p.MaxConcurrency,
		Timeout:        stage.Timeout,
	})

	// Join policy: tolerate failures up to the pipeline's configured
	// fraction, otherwise the whole group fails the run.
	failed := forkjoin.Failures(outcomes)
	fraction := forkjoin.FailedFraction(outcomes)
	if fraction > p.FailureTolerance {
		return &StageError{
			Stage: stage.Name,
			Err:   fmt.Errorf("%d of %d fan-out tasks failed (tolerance %.2f): %w", len(failed), len(outcomes), p.FailureTolerance, failed[0].Err),
		}
	}
	if len(failed) > 0 {
		warning := fmt.Sprintf("stage %q: %d of %d fan-out tasks failed; proceeding with partial results", stage.Name, len(failed), len(outcomes))
		st.addWarning(warning)
		logger.Warn("Fan-out proceeding with partial results.", "stage", stage.Name, "failed", len(failed), "total", len(outcomes))
	}

	if err := st.board.Set(stage.Outputs[0], outcomes); err != nil {
		return &StageError{Stage: stage.Name, Err: err}
	}
	return nil
}

// runGuarded drives the stage through the validator-retry controller.
func (s *Supervisor) runGuarded(ctx context.Context, st *run, stage *config.Stage) error {
	validator, ok := s.registry.Validator(stage.Validator)
	if !ok {
		return &StageError{Stage: stage.Name, Err: fmt.Errorf("validator %q not registered", stage.Validator)}
	}

	controller := &validate.Controller{MaxRetries: stage.MaxRetries}
	verdict, err := controller.Run(ctx, validate.Hooks{
		Draft: func(ctx context.Context, feedback map[string]any) error {
			if feedback != nil {
				// Re-entry: the previous attempt's outputs are cleared so
				// the retry never sees a half-written mix.
				st.board.Reset(stage.Outputs...)
				st.addRetry()
			}
			return s.runPlain(ctx, st, stage, feedback)
		},
		Validate: func(ctx context.Context) (validate.Result, error) {
			return validator(ctx, st.board.Values())
		},
		OnState: func(state validate.State) {
			switch state {
			case validate.StateValidating:
				st.setStatus(StatusAwaitingValidation)
			case validate.StateRetrying:
				st.setStatus(StatusRetrying)
			case validate.StateAccepted, validate.StateAcceptedWithWarnings:
				st.setStatus(StatusRunning)
			}
		},
	})
	if err != nil {
		if _, ok := err.(*StageError); ok {
			return err
		}
		return &StageError{Stage: stage.Name, Err: err}
	}

	if verdict.State == validate.StateAcceptedWithWarnings {
		st.acceptWithWarnings(stage.Name, verdict.Last)
	}
	return nil
}

// checkpoint snapshots the context and writes it to the cache under this
// run's id.
func (s *Supervisor) checkpoint(ctx context.Context, st *run, stage *config.Stage) error {
	snap, err := st.board.Snapshot()
	if err != nil {
		return &StageError{Stage: stage.Name, Err: err}
	}
	entry := &runcache.Entry{
		RunID:     st.rec.RunID,
		Pipeline:  st.rec.Pipeline,
		BaseRunID: st.rec.BaseRunID,
		Seq:       st.seq,
		Stage:     stage.Name,
		Context:   snap,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.cache.Put(ctx, st.rec.RunID, entry); err != nil {
		return &StageError{Stage: stage.Name, Err: fmt.Errorf("write checkpoint: %w", err)}
	}
	return nil
}

// mergeOutputs writes a handler's returned values, enforcing that stages
// only write their declared output keys.
func (s *Supervisor) mergeOutputs(st *run, stage *config.Stage, out map[string]any) error {
	declared := make(map[string]struct{}, len(stage.Outputs))
	for _, k := range stage.Outputs {
		declared[k] = struct{}{}
	}
	for k, v := range out {
		if _, ok := declared[k]; !ok {
			return &StageError{Stage: stage.Name, Err: fmt.Errorf("undeclared output key %q", k)}
		}
		if err := st.board.Set(k, v); err != nil {
			return &StageError{Stage: stage.Name, Err: err}
		}
	}
	return nil
}

// invokeWithTimeout applies a per-stage timeout; a timeout surfaces as
// the stage's own failure, not a run-level fault.
func invokeWithTimeout(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) (map[string]any, error)) (map[string]any, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return fn(ctx)
}

// partitionItems normalizes any slice-shaped value into []any. Values
// restored from a cache snapshot arrive as []any already; seeds passed
// through the Go API may be concrete slices.
func partitionItems(raw any) ([]any, error) {
	if items, ok := raw.([]any); ok {
		return items, nil
	}
	v := reflect.ValueOf(raw)
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return nil, fmt.Errorf("expected a list, got %T", raw)
	}
	items := make([]any, v.Len())
	for i := range items {
		items[i] = v.Index(i).Interface()
	}
	return items, nil
}

// --- record mutation helpers ---

func (st *run) setStatus(status Status) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.rec.Status = status
	st.rec.UpdatedAt = time.Now().UTC()
}

func (st *run) enterStage(index int, name string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.rec.CurrentStage = index
	st.rec.StageName = name
	st.rec.UpdatedAt = time.Now().UTC()
}

func (st *run) addWarning(msg string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.rec.Warnings = append(st.rec.Warnings, msg)
	st.rec.UpdatedAt = time.Now().UTC()
}

func (st *run) addRetry() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.rec.Retries++
	st.rec.UpdatedAt = time.Now().UTC()
}

func (st *run) acceptWithWarnings(stage string, last *validate.Result) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.rec.Warnings = append(st.rec.Warnings, fmt.Sprintf("stage %q: validation retries exhausted, output accepted with warnings", stage))
	st.rec.LastValidation = last
	st.rec.UpdatedAt = time.Now().UTC()
}

func (st *run) complete() {
	st.mu.Lock()
	defer st.mu.Unlock()
	now := time.Now().UTC()
	st.rec.Status = StatusCompleted
	st.rec.UpdatedAt = now
	st.rec.CompletedAt = &now
}

func (s *Supervisor) fail(st *run, err error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	now := time.Now().UTC()
	st.rec.Status = StatusFailed
	st.rec.Error = err.Error()
	st.rec.UpdatedAt = now
	st.rec.CompletedAt = &now
}
