// Package targets provides the `targets` builtin, which prints target names
// one per line for shell completion scripts.
package targets

import (
	"context"
	"fmt"

	"github.com/vk/taskgrid/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the handler with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.Register("targets", OnRunTargets)
}

// OnRunTargets prints every target name in declaration order.
func OnRunTargets(_ context.Context, env *registry.Env) error {
	for _, name := range env.Model.Names() {
		if _, err := fmt.Fprintln(env.Out, name); err != nil {
			return err
		}
	}
	return nil
}
