package validate

import "context"

// Result is the verdict of a validator function: a pass/fail bit plus
// structured feedback keyed by failing stage name. The feedback payload
// is opaque to the orchestrator; it is handed verbatim to the next retry
// invocation of that stage.
type Result struct {
	Pass     bool           `json:"pass"`
	Feedback map[string]any `json:"feedback,omitempty"`
}

// Func inspects the current execution context and judges the guarded
// stage's output. An error return is a validator malfunction and is
// treated as a stage execution error, not as a failed validation.
type Func func(ctx context.Context, values map[string]any) (Result, error)
