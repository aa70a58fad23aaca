package registry

import (
	"fmt"

	"github.com/vk/pipegrid/internal/config"
)

// CycleError reports that a pipeline's dependency edges admit no valid
// execution order. It is raised at registration time and permanently
// prevents runs of that pipeline type.
type CycleError struct {
	Pipeline string
	Stage    string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("pipeline %q: dependency cycle involving stage %q", e.Pipeline, e.Stage)
}

// resolveOrder computes the deterministic topological order of a
// pipeline's stages. Edges come from explicit depends_on plus implicit
// producer/consumer relationships: a stage reading key k depends on the
// stage that declares k as an output (keys with no producer are initial
// inputs). Declaration order breaks ties, so equal graphs always resolve
// to the same order.
func resolveOrder(p *config.Pipeline) ([]*config.Stage, error) {
	byName := make(map[string]*config.Stage, len(p.Stages))
	producer := make(map[string]string)
	for _, s := range p.Stages {
		byName[s.Name] = s
		for _, out := range s.Outputs {
			producer[out] = s.Name
		}
	}

	deps := make(map[string]map[string]struct{}, len(p.Stages))
	addEdge := func(stage, dep string) {
		if dep == stage {
			return
		}
		if deps[stage] == nil {
			deps[stage] = make(map[string]struct{})
		}
		deps[stage][dep] = struct{}{}
	}
	for _, s := range p.Stages {
		for _, dep := range s.DependsOn {
			addEdge(s.Name, dep)
		}
		for _, in := range s.Inputs {
			if prod, ok := producer[in]; ok {
				addEdge(s.Name, prod)
			}
		}
		if s.FansOut() {
			if prod, ok := producer[s.FanOutKey]; ok {
				addEdge(s.Name, prod)
			}
		}
	}

	if err := detectCycles(p, deps); err != nil {
		return nil, err
	}

	// Kahn's algorithm with declaration order as the tie-breaker: at each
	// step take the first declared stage whose dependencies are all placed.
	placed := make(map[string]struct{}, len(p.Stages))
	order := make([]*config.Stage, 0, len(p.Stages))
	for len(order) < len(p.Stages) {
		progressed := false
		for _, s := range p.Stages {
			if _, done := placed[s.Name]; done {
				continue
			}
			ready := true
			for dep := range deps[s.Name] {
				if _, done := placed[dep]; !done {
					ready = false
					break
				}
			}
			if ready {
				placed[s.Name] = struct{}{}
				order = append(order, s)
				progressed = true
			}
		}
		if !progressed {
			// Unreachable after detectCycles; kept as a guard.
			return nil, &CycleError{Pipeline: p.Name, Stage: firstUnplaced(p, placed)}
		}
	}
	return order, nil
}

// detectCycles runs a depth-first search over the dependency edges,
// tracking the recursion stack to spot back edges.
func detectCycles(p *config.Pipeline, deps map[string]map[string]struct{}) error {
	visiting := make(map[string]bool)
	visited := make(map[string]bool)

	var visit func(name string) error
	visit = func(name string) error {
		visiting[name] = true
		for dep := range deps[name] {
			if visiting[dep] {
				return &CycleError{Pipeline: p.Name, Stage: dep}
			}
			if !visited[dep] {
				if err := visit(dep); err != nil {
					return err
				}
			}
		}
		delete(visiting, name)
		visited[name] = true
		return nil
	}

	for _, s := range p.Stages {
		if !visited[s.Name] {
			if err := visit(s.Name); err != nil {
				return err
			}
		}
	}
	return nil
}

func firstUnplaced(p *config.Pipeline, placed map[string]struct{}) string {
	for _, s := range p.Stages {
		if _, done := placed[s.Name]; !done {
			return s.Name
		}
	}
	return ""
}
