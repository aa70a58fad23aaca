package hcl

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/vk/pipegrid/internal/config"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

const (
	defaultMaxConcurrency   = 4
	defaultFailureTolerance = 0.5
	defaultMaxRetries       = 1
)

// translatePipeline converts the HCL-specific pipeline schema into the
// agnostic model, applying defaults for omitted attributes.
func translatePipeline(p *Pipeline) (*config.Pipeline, error) {
	out := &config.Pipeline{
		Name:             p.Name,
		MaxConcurrency:   defaultMaxConcurrency,
		FailureTolerance: defaultFailureTolerance,
	}
	if p.MaxConcurrency != nil {
		if *p.MaxConcurrency < 1 {
			return nil, fmt.Errorf("max_concurrency must be >= 1, got %d", *p.MaxConcurrency)
		}
		out.MaxConcurrency = *p.MaxConcurrency
	}
	if p.FailureTolerance != nil {
		if *p.FailureTolerance < 0 || *p.FailureTolerance > 1 {
			return nil, fmt.Errorf("failure_tolerance must be within [0, 1], got %v", *p.FailureTolerance)
		}
		out.FailureTolerance = *p.FailureTolerance
	}
	if len(p.Stages) == 0 {
		return nil, fmt.Errorf("pipeline has no stages")
	}

	if p.Defaults != nil {
		defaults, err := translateDefaults(p.Defaults)
		if err != nil {
			return nil, fmt.Errorf("defaults: %w", err)
		}
		out.Defaults = defaults
	}

	for _, s := range p.Stages {
		stage, err := translateStage(s)
		if err != nil {
			return nil, fmt.Errorf("stage %q: %w", s.Name, err)
		}
		out.Stages = append(out.Stages, stage)
	}
	return out, nil
}

// translateDefaults evaluates every attribute of the defaults block to a
// plain Go value. Only literal expressions are supported; defaults cannot
// reference other values.
func translateDefaults(d *Defaults) (map[string]any, error) {
	attrs, diags := d.Body.JustAttributes()
	if diags.HasErrors() {
		return nil, diags
	}
	out := make(map[string]any, len(attrs))
	for name, attr := range attrs {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("attribute %q: %w", name, diags)
		}
		goVal, err := ctyToGo(val)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", name, err)
		}
		out[name] = goVal
	}
	return out, nil
}

// ctyToGo converts a cty.Value to its plain Go representation by routing
// it through its JSON encoding.
func ctyToGo(val cty.Value) (any, error) {
	raw, err := ctyjson.Marshal(val, val.Type())
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// translateStage converts the HCL-specific stage schema into the agnostic model.
func translateStage(s *Stage) (*config.Stage, error) {
	if s.Handler == "" {
		return nil, fmt.Errorf("handler is required")
	}
	out := &config.Stage{
		Name:       s.Name,
		Handler:    s.Handler,
		Inputs:     s.Inputs,
		Outputs:    s.Outputs,
		DependsOn:  s.DependsOn,
		FanOutKey:  s.FanOut,
		Checkpoint: s.Checkpoint,
		Validator:  s.Validator,
		MaxRetries: defaultMaxRetries,
	}
	if s.MaxRetries != nil {
		if *s.MaxRetries < 0 {
			return nil, fmt.Errorf("max_retries must be >= 0, got %d", *s.MaxRetries)
		}
		out.MaxRetries = *s.MaxRetries
	}
	if s.MaxRetries != nil && s.Validator == "" {
		return nil, fmt.Errorf("max_retries set but no validator declared")
	}
	if s.Timeout != "" {
		d, err := time.ParseDuration(s.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout: %w", err)
		}
		out.Timeout = d
	}
	return out, nil
}
