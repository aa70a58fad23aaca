package supervisor

import (
	"errors"
	"fmt"
)

// ErrUnknownRun is returned when a run id has no record.
var ErrUnknownRun = errors.New("unknown run")

// ErrRunActive is returned by Result while the run has not reached a
// terminal status yet.
var ErrRunActive = errors.New("run has not reached a terminal status")

// ErrRunCanceled marks a run stopped by explicit request. The run record
// ends up failed with this as the distinguishing reason.
var ErrRunCanceled = errors.New("run canceled")

// StageError wraps the failure of a single stage with the stage's name.
// Inside a fan-out group failures are captured per task instead; a
// StageError at the join means the group as a whole exceeded the
// pipeline's failure tolerance.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %q: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
