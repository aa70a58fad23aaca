// Package noop provides a trivial passthrough stage handler. It is useful
// for smoke-testing pipeline wiring without any real work being done.
package noop

import (
	"context"

	"github.com/vk/pipegrid/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// onRunNoop is the handler for the 'noop' stage. It writes nothing and
// completes instantly, so stages using it must declare no outputs.
func onRunNoop(ctx context.Context, in registry.StageInput) (map[string]any, error) {
	return nil, nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterHandler("noop", onRunNoop)
}
