package registry

import (
	"context"
	"fmt"
	"sort"

	"github.com/vk/pipegrid/internal/config"
	"github.com/vk/pipegrid/internal/validate"
)

// StageInput is the read view handed to a stage handler.
type StageInput struct {
	// Values is a snapshot of the execution context. Handlers read any
	// key but return their writes; they never mutate Values.
	Values map[string]any

	// Item is the bound partition item during fan-out, nil otherwise.
	Item any

	// Feedback carries the validator's structured feedback on a retry
	// invocation, nil on the first attempt.
	Feedback map[string]any
}

// StageFunc is a registered stage handler. It returns the values to write
// under the stage's declared output keys. Handlers invoked through a
// fan-out group must be safe to call concurrently with other items.
type StageFunc func(ctx context.Context, in StageInput) (map[string]any, error)

// Module is the interface all handler modules implement to be registered.
type Module interface {
	Register(r *Registry)
}

// Registry holds registered handlers, validators, and pipeline
// definitions for a single application instance.
type Registry struct {
	handlers   map[string]StageFunc
	validators map[string]validate.Func
	pipelines  map[string]*config.Pipeline
	orders     map[string][]*config.Stage
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		handlers:   make(map[string]StageFunc),
		validators: make(map[string]validate.Func),
		pipelines:  make(map[string]*config.Pipeline),
		orders:     make(map[string][]*config.Stage),
	}
}

// RegisterHandler registers a stage handler under name.
func (r *Registry) RegisterHandler(name string, fn StageFunc) {
	r.handlers[name] = fn
}

// RegisterValidator registers a validator function under name.
func (r *Registry) RegisterValidator(name string, fn validate.Func) {
	r.validators[name] = fn
}

// Handler looks up a registered stage handler.
func (r *Registry) Handler(name string) (StageFunc, bool) {
	fn, ok := r.handlers[name]
	return fn, ok
}

// Validator looks up a registered validator function.
func (r *Registry) Validator(name string) (validate.Func, bool) {
	fn, ok := r.validators[name]
	return fn, ok
}

// Pipeline looks up a registered pipeline definition.
func (r *Registry) Pipeline(name string) (*config.Pipeline, bool) {
	p, ok := r.pipelines[name]
	return p, ok
}

// PipelineNames returns the registered pipeline names in sorted order.
func (r *Registry) PipelineNames() []string {
	names := make([]string, 0, len(r.pipelines))
	for name := range r.pipelines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegisterPipelines validates every pipeline in the model against the
// registered handlers and stores its resolved execution order. It must be
// called after all handler modules have registered.
func (r *Registry) RegisterPipelines(model *config.Model) error {
	for name, p := range model.Pipelines {
		if err := r.validatePipeline(p); err != nil {
			return fmt.Errorf("pipeline %q: %w", name, err)
		}
		order, err := resolveOrder(p)
		if err != nil {
			return err
		}
		r.pipelines[name] = p
		r.orders[name] = order
	}
	return nil
}

// Resolve returns the execution order computed at registration time.
func (r *Registry) Resolve(pipeline string) ([]*config.Stage, error) {
	order, ok := r.orders[pipeline]
	if !ok {
		return nil, fmt.Errorf("unknown pipeline %q", pipeline)
	}
	return order, nil
}

// validatePipeline performs the parity and declaration checks that do not
// involve graph shape.
func (r *Registry) validatePipeline(p *config.Pipeline) error {
	seenStage := make(map[string]struct{}, len(p.Stages))
	producer := make(map[string]string)

	for _, s := range p.Stages {
		if _, dup := seenStage[s.Name]; dup {
			return fmt.Errorf("stage %q declared more than once", s.Name)
		}
		seenStage[s.Name] = struct{}{}

		if _, ok := r.handlers[s.Handler]; !ok {
			return fmt.Errorf("stage %q: handler %q is not registered", s.Name, s.Handler)
		}
		if s.Validated() {
			if _, ok := r.validators[s.Validator]; !ok {
				return fmt.Errorf("stage %q: validator %q is not registered", s.Name, s.Validator)
			}
		}
		if s.FansOut() && len(s.Outputs) != 1 {
			return fmt.Errorf("stage %q: fan-out stages must declare exactly one output, got %d", s.Name, len(s.Outputs))
		}
		if s.FansOut() && s.Validated() {
			return fmt.Errorf("stage %q: fan-out stages cannot be validated; guard the join stage instead", s.Name)
		}

		for _, out := range s.Outputs {
			if prev, taken := producer[out]; taken {
				return fmt.Errorf("output key %q written by both %q and %q", out, prev, s.Name)
			}
			producer[out] = s.Name
		}
	}

	for _, s := range p.Stages {
		for _, dep := range s.DependsOn {
			if _, ok := seenStage[dep]; !ok {
				return fmt.Errorf("stage %q: depends_on references unknown stage %q", s.Name, dep)
			}
		}
	}
	return nil
}
