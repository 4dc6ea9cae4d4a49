// Package registry maps builtin target actions to their Go handlers. A target
// declares `builtin = "<name>"` to run one of them instead of a command.
package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/vk/taskgrid/internal/config"
)

// Env is what a builtin handler gets to work with.
type Env struct {
	Out    io.Writer
	Model  *config.Model
	Target *config.Target
}

// Handler is the Go implementation of a builtin action.
type Handler func(ctx context.Context, env *Env) error

// Module is the interface that builtin providers implement to be registered.
type Module interface {
	Register(r *Registry)
}

// Registry holds the builtin handlers of a single application instance.
type Registry struct {
	handlers map[string]Handler
}

// New creates a Registry and registers the given modules into it.
func New(modules ...Module) *Registry {
	r := &Registry{handlers: make(map[string]Handler)}
	for _, m := range modules {
		m.Register(r)
	}
	return r
}

// Register adds a handler. Registering the same name twice is a programmer
// error and panics.
func (r *Registry) Register(name string, h Handler) {
	if _, exists := r.handlers[name]; exists {
		panic(fmt.Sprintf("builtin handler with name '%s' already registered", name))
	}
	slog.Debug("Registering builtin handler.", "name", name)
	r.handlers[name] = h
}

// Lookup returns the handler registered under name.
func (r *Registry) Lookup(name string) (Handler, bool) {
	h, ok := r.handlers[name]
	return h, ok
}

// Names returns the registered builtin names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks that every builtin target in the model has a handler.
func (r *Registry) Validate(model *config.Model) error {
	var errs []error
	for _, t := range model.Targets {
		if t.Builtin == "" {
			continue
		}
		if _, ok := r.handlers[t.Builtin]; !ok {
			errs = append(errs, fmt.Errorf("target %q uses unknown builtin %q (available: %v)", t.Name, t.Builtin, r.Names()))
		}
	}
	return errors.Join(errs...)
}

// Run invokes the builtin for the given target.
func (r *Registry) Run(ctx context.Context, env *Env) error {
	h, ok := r.handlers[env.Target.Builtin]
	if !ok {
		return fmt.Errorf("target %q uses unknown builtin %q", env.Target.Name, env.Target.Builtin)
	}
	return h(ctx, env)
}
