package hcl

import "github.com/hashicorp/hcl/v2"

// Root represents the top-level structure of a pipeline manifest file.
type Root struct {
	Pipelines []*Pipeline `hcl:"pipeline,block"`
	Body      hcl.Body    `hcl:",remain"`
}

// Pipeline represents a `pipeline` block.
type Pipeline struct {
	Name             string    `hcl:"name,label"`
	MaxConcurrency   *int      `hcl:"max_concurrency,optional"`
	FailureTolerance *float64  `hcl:"failure_tolerance,optional"`
	Defaults         *Defaults `hcl:"defaults,block"`
	Stages           []*Stage  `hcl:"stage,block"`
}

// Defaults represents the optional `defaults` block: seed values merged
// into the execution context before the caller's initial inputs.
type Defaults struct {
	Body hcl.Body `hcl:",remain"`
}

// Stage represents a `stage` block within a pipeline.
type Stage struct {
	Name       string   `hcl:"name,label"`
	Handler    string   `hcl:"handler"`
	Inputs     []string `hcl:"inputs,optional"`
	Outputs    []string `hcl:"outputs,optional"`
	DependsOn  []string `hcl:"depends_on,optional"`
	FanOut     string   `hcl:"fan_out,optional"`
	Checkpoint bool     `hcl:"checkpoint,optional"`
	Validator  string   `hcl:"validator,optional"`
	MaxRetries *int     `hcl:"max_retries,optional"`
	Timeout    string   `hcl:"timeout,optional"`
}
