// Package env_vars provides the `env` builtin, which prints the environment
// that commands inherit, with the target's own env applied on top.
package env_vars

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/vk/taskgrid/internal/expr"
	"github.com/vk/taskgrid/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct {
	// Environ overrides os.Environ, for tests.
	Environ func() []string
}

// Register registers the handler with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.Register("env", m.OnRunEnvVars)
}

// OnRunEnvVars writes KEY=value lines sorted by key.
func (m *Module) OnRunEnvVars(_ context.Context, env *registry.Env) error {
	environ := os.Environ
	if m.Environ != nil {
		environ = m.Environ
	}
	envMap := expr.EnvironMap(environ())
	for k, v := range env.Target.Env {
		envMap[k] = v
	}

	var b strings.Builder
	for _, k := range expr.SortedKeys(envMap) {
		fmt.Fprintf(&b, "%s=%s\n", k, envMap[k])
	}
	_, err := fmt.Fprint(env.Out, b.String())
	return err
}
