// Package help provides the `help` builtin, which prints usage text listing
// every target of the loaded task file.
package help

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/vk/taskgrid/internal/config"
	"github.com/vk/taskgrid/internal/expr"
	"github.com/vk/taskgrid/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the handler with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.Register(config.HelpTarget, OnRunHelp)
}

// OnRunHelp writes usage text for env.Model to env.Out.
func OnRunHelp(_ context.Context, env *registry.Env) error {
	return Write(env.Out, env.Model)
}

// Write renders usage text for the model.
func Write(out io.Writer, model *config.Model) error {
	var b strings.Builder
	b.WriteString("Usage:\n  taskgrid [options] [TARGET...] [NAME=value...]\n\nTargets:\n")

	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	for _, t := range model.Targets {
		desc := describe(t)
		if t.Name == model.DefaultTarget {
			desc += " (default)"
		}
		fmt.Fprintf(tw, "  %s\t%s\n", t.Name, strings.TrimSpace(desc))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(model.Variables) > 0 {
		b.WriteString("\nVariables:\n")
		tw = tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
		for _, name := range expr.SortedKeys(model.Variables) {
			fmt.Fprintf(tw, "  %s\t= %q\n", name, model.Variables[name])
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	_, err := io.WriteString(out, b.String())
	return err
}

// describe falls back to what the target does when it has no description.
func describe(t *config.Target) string {
	if t.Description != "" {
		return t.Description
	}
	switch t.Kind() {
	case config.CommandKind:
		return "Runs `" + strings.Join(t.Command, " ") + "`."
	case config.BuiltinKind:
		return "Builtin " + t.Builtin + "."
	default:
		return "Runs " + strings.Join(t.DependsOn, ", ") + "."
	}
}
