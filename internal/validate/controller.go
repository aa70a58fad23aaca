package validate

import (
	"context"

	"github.com/vk/pipegrid/internal/ctxlog"
)

// State is one position in the controller's state machine.
type State int

const (
	StateDrafted State = iota
	StateValidating
	StateRetrying
	StateAccepted
	StateAcceptedWithWarnings
)

func (s State) String() string {
	switch s {
	case StateDrafted:
		return "drafted"
	case StateValidating:
		return "validating"
	case StateRetrying:
		return "retrying"
	case StateAccepted:
		return "accepted"
	case StateAcceptedWithWarnings:
		return "accepted_with_warnings"
	default:
		return "unknown"
	}
}

// Hooks are the callbacks the controller drives. The controller owns the
// loop; the supervisor owns what drafting and validating actually mean.
type Hooks struct {
	// Draft produces (or re-produces) the guarded stage's output. On a
	// retry the feedback from the failed validation is non-nil and the
	// supervisor has already cleared the stage's previous outputs.
	Draft func(ctx context.Context, feedback map[string]any) error

	// Validate judges the current output.
	Validate func(ctx context.Context) (Result, error)

	// OnState, when non-nil, observes every state transition. Used by the
	// supervisor to surface awaiting_validation/retrying run statuses.
	OnState func(s State)
}

// Verdict is the controller's terminal outcome. State is StateAccepted or
// StateAcceptedWithWarnings; Last carries the final failing Result when
// the retry ceiling was reached.
type Verdict struct {
	State    State
	Attempts int
	Last     *Result
}

// Controller runs the guarded-stage state machine. MaxRetries is the
// number of re-invocations after the first attempt, so MaxRetries = 1
// means at most two total attempts.
type Controller struct {
	MaxRetries int
}

// Run drafts, validates, and retries up to the ceiling. Draft or
// validator errors abort immediately and propagate as the stage's
// execution error; a failed validation never does.
func (c *Controller) Run(ctx context.Context, h Hooks) (Verdict, error) {
	logger := ctxlog.FromContext(ctx)
	transition := func(s State) {
		if h.OnState != nil {
			h.OnState(s)
		}
	}

	transition(StateDrafted)
	if err := h.Draft(ctx, nil); err != nil {
		return Verdict{}, err
	}
	attempts := 1

	var last Result
	for {
		transition(StateValidating)
		result, err := h.Validate(ctx)
		if err != nil {
			return Verdict{}, err
		}
		if result.Pass {
			transition(StateAccepted)
			return Verdict{State: StateAccepted, Attempts: attempts}, nil
		}
		last = result

		if attempts > c.MaxRetries {
			break
		}
		logger.Info("Validation failed, retrying guarded stage.", "attempt", attempts, "maxRetries", c.MaxRetries)
		transition(StateRetrying)
		transition(StateDrafted)
		if err := h.Draft(ctx, result.Feedback); err != nil {
			return Verdict{}, err
		}
		attempts++
	}

	logger.Warn("Validation retries exhausted, accepting degraded output.", "attempts", attempts)
	transition(StateAcceptedWithWarnings)
	return Verdict{State: StateAcceptedWithWarnings, Attempts: attempts, Last: &last}, nil
}
