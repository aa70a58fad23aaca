package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vk/pipegrid/internal/blackboard"
	"github.com/vk/pipegrid/internal/config"
	"github.com/vk/pipegrid/internal/ctxlog"
	"github.com/vk/pipegrid/internal/registry"
	"github.com/vk/pipegrid/internal/runcache"
)

// Supervisor executes pipeline runs and answers status queries about
// them. All methods are safe for concurrent use.
type Supervisor struct {
	registry *registry.Registry
	cache    runcache.Store
	logger   *slog.Logger

	runs sync.Map // run id -> *run
}

// run is the supervisor's internal per-run state. rec and board are
// guarded by mu; cancel and done are set once at creation.
type run struct {
	mu    sync.Mutex
	rec   Record
	board *blackboard.Board

	// seq is the enhancement generation written into checkpoint entries:
	// 0 for fresh runs, base entry's seq + 1 for enhancement runs.
	seq int

	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a supervisor backed by the given registry and cache store.
func New(reg *registry.Registry, cache runcache.Store, logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Supervisor{registry: reg, cache: cache, logger: logger}
}

// Submit starts a new run of the named pipeline, seeded with the
// manifest's defaults overlaid by initialInputs, and returns its run id
// immediately. Execution proceeds asynchronously.
func (s *Supervisor) Submit(ctx context.Context, pipeline string, initialInputs map[string]any) (string, error) {
	p, ok := s.registry.Pipeline(pipeline)
	if !ok {
		return "", fmt.Errorf("unknown pipeline %q", pipeline)
	}
	order, err := s.registry.Resolve(pipeline)
	if err != nil {
		return "", err
	}

	board := blackboard.New()
	board.Seed(p.Defaults)
	board.Seed(initialInputs)

	st := s.newRun(pipeline, "", 0, board, len(order))
	s.start(st, order, 0)
	return st.rec.RunID, nil
}

// SubmitWait is the synchronous variant of Submit: it blocks until the
// run reaches a terminal status or ctx is done.
func (s *Supervisor) SubmitWait(ctx context.Context, pipeline string, initialInputs map[string]any) (Record, error) {
	runID, err := s.Submit(ctx, pipeline, initialInputs)
	if err != nil {
		return Record{}, err
	}
	return s.Wait(ctx, runID)
}

// Status returns a copy of the run's record.
func (s *Supervisor) Status(runID string) (Record, error) {
	st, err := s.lookup(runID)
	if err != nil {
		return Record{}, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.rec.clone(), nil
}

// Result returns a snapshot of the run's execution context. It is only
// available once the run is terminal; a failed run still exposes its
// partial context for diagnostics.
func (s *Supervisor) Result(runID string) (map[string]any, error) {
	st, err := s.lookup(runID)
	if err != nil {
		return nil, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if !st.rec.Status.Terminal() {
		return nil, fmt.Errorf("run %q: %w", runID, ErrRunActive)
	}
	return st.board.Values(), nil
}

// Cancel requests that the run stop at the next stage boundary. In-flight
// fan-out tasks finish or abort on their own; tasks not yet dispatched
// are not started.
func (s *Supervisor) Cancel(runID string) error {
	st, err := s.lookup(runID)
	if err != nil {
		return err
	}
	st.cancel()
	return nil
}

// Wait blocks until the run reaches a terminal status or ctx is done,
// then returns the final record.
func (s *Supervisor) Wait(ctx context.Context, runID string) (Record, error) {
	st, err := s.lookup(runID)
	if err != nil {
		return Record{}, err
	}
	select {
	case <-st.done:
	case <-ctx.Done():
		return Record{}, ctx.Err()
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.rec.clone(), nil
}

func (s *Supervisor) lookup(runID string) (*run, error) {
	v, ok := s.runs.Load(runID)
	if !ok {
		return nil, fmt.Errorf("run %q: %w", runID, ErrUnknownRun)
	}
	return v.(*run), nil
}

// newRun creates and registers the per-run state with a pending record.
func (s *Supervisor) newRun(pipeline, baseRunID string, seq int, board *blackboard.Board, stageCount int) *run {
	now := time.Now().UTC()
	st := &run{
		rec: Record{
			RunID:      uuid.New().String(),
			Pipeline:   pipeline,
			BaseRunID:  baseRunID,
			Status:     StatusPending,
			StageCount: stageCount,
			StartedAt:  now,
			UpdatedAt:  now,
		},
		board: board,
		seq:   seq,
		done:  make(chan struct{}),
	}
	s.runs.Store(st.rec.RunID, st)
	return st
}

// start launches the run's executor goroutine. The run context derives
// from Background, not the caller's context: submission returns
// immediately and the run outlives the request that created it.
func (s *Supervisor) start(st *run, order []*config.Stage, startIdx int) {
	logger := s.logger.With("runID", st.rec.RunID, "pipeline", st.rec.Pipeline)
	runCtx, cancel := context.WithCancel(ctxlog.WithLogger(context.Background(), logger))
	st.cancel = cancel

	go func() {
		defer cancel()
		defer close(st.done)
		s.execute(runCtx, st, order, startIdx)
	}()
}
