// Package yaml_adapter implements config.Loader for YAML task files. String
// values are rendered as HCL templates, so `${var.x}` and `${env.X}` behave
// exactly as they do in HCL task files.
package yaml_adapter

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/taskgrid/internal/config"
	"github.com/vk/taskgrid/internal/ctxlog"
	"github.com/vk/taskgrid/internal/expr"
	"gopkg.in/yaml.v3"
)

type fileRoot struct {
	Default   string            `yaml:"default"`
	Variables map[string]string `yaml:"variables"`
	// Targets is kept as a node so declaration order survives decoding.
	Targets yaml.Node `yaml:"targets"`
}

type target struct {
	Description string            `yaml:"description"`
	Command     command           `yaml:"command"`
	Dir         string            `yaml:"dir"`
	Env         map[string]string `yaml:"env"`
	DependsOn   []string          `yaml:"depends_on"`
	Parallel    bool              `yaml:"parallel"`
	Builtin     string            `yaml:"builtin"`
}

// command accepts either a single command line or a list of arguments.
type command struct {
	Line string
	Argv []string
}

func (c *command) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		return value.Decode(&c.Line)
	case yaml.SequenceNode:
		return value.Decode(&c.Argv)
	default:
		return fmt.Errorf("line %d: command must be a string or a list of strings", value.Line)
	}
}

// Loader is the YAML-specific implementation of the config.Loader interface.
type Loader struct {
	// Environ is exposed as `env.*`. Defaults to os.Environ.
	Environ func() []string
}

// NewLoader creates a new YAML task file loader.
func NewLoader() *Loader {
	return &Loader{Environ: os.Environ}
}

// Load decodes the YAML source and translates it into the agnostic model.
func (l *Loader) Load(ctx context.Context, src config.Source) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx).With("file", src.Filename)
	logger.Debug("YAML loader started.")

	var root fileRoot
	if err := yaml.Unmarshal(src.Data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse YAML file %s: %w", src.Filename, err)
	}

	environ := os.Environ()
	if l.Environ != nil {
		environ = l.Environ()
	}

	vars, err := evalVariables(root.Variables, src.Vars, environ, src.Filename)
	if err != nil {
		return nil, fmt.Errorf("in %s: %w", src.Filename, err)
	}
	evalCtx := expr.NewEvalContext(vars, environ)
	r := renderer{evalCtx: evalCtx, filename: src.Filename}

	def, err := r.render(root.Default)
	if err != nil {
		return nil, fmt.Errorf("in %s: default: %w", src.Filename, err)
	}
	model := &config.Model{
		Source:        src.Filename,
		DefaultTarget: def,
		Variables:     vars,
	}

	if root.Targets.Kind != 0 && root.Targets.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("in %s: line %d: targets must be a mapping", src.Filename, root.Targets.Line)
	}
	// Mapping content alternates key and value nodes.
	for i := 0; i+1 < len(root.Targets.Content); i += 2 {
		keyNode, valNode := root.Targets.Content[i], root.Targets.Content[i+1]

		var raw target
		if err := valNode.Decode(&raw); err != nil {
			return nil, fmt.Errorf("in %s: target %q: %w", src.Filename, keyNode.Value, err)
		}
		t, err := r.translateTarget(keyNode.Value, &raw)
		if err != nil {
			return nil, fmt.Errorf("in %s: target %q: %w", src.Filename, keyNode.Value, err)
		}
		model.Targets = append(model.Targets, t)
	}

	logger.Debug("YAML loading complete.", "targets", len(model.Targets), "default", model.DefaultTarget)
	return model, nil
}

// evalVariables renders variable defaults against the environment only,
// then applies overrides.
func evalVariables(defs, overrides map[string]string, environ []string, filename string) (map[string]string, error) {
	r := renderer{evalCtx: expr.NewEvalContext(nil, environ), filename: filename}
	vars := make(map[string]string, len(defs)+len(overrides))
	for _, name := range expr.SortedKeys(defs) {
		v, err := r.render(defs[name])
		if err != nil {
			return nil, fmt.Errorf("variable %q: %w", name, err)
		}
		vars[name] = v
	}
	for k, v := range overrides {
		vars[k] = v
	}
	return vars, nil
}

type renderer struct {
	evalCtx  *hcl.EvalContext
	filename string
}

func (r renderer) render(s string) (string, error) {
	if s == "" {
		return "", nil
	}
	return expr.RenderTemplate(r.evalCtx, s, r.filename)
}

func (r renderer) renderAll(in []string) ([]string, error) {
	if in == nil {
		return nil, nil
	}
	out := make([]string, len(in))
	for i, s := range in {
		v, err := r.render(s)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (r renderer) translateTarget(name string, raw *target) (*config.Target, error) {
	t := &config.Target{Name: name, Parallel: raw.Parallel}

	var err error
	if t.Description, err = r.render(raw.Description); err != nil {
		return nil, fmt.Errorf("description: %w", err)
	}
	if t.DependsOn, err = r.renderAll(raw.DependsOn); err != nil {
		return nil, fmt.Errorf("depends_on: %w", err)
	}
	if t.Builtin, err = r.render(raw.Builtin); err != nil {
		return nil, fmt.Errorf("builtin: %w", err)
	}
	if t.Dir, err = r.render(raw.Dir); err != nil {
		return nil, err
	}

	switch {
	case raw.Command.Line != "":
		line, err := r.render(raw.Command.Line)
		if err != nil {
			return nil, err
		}
		if t.Command = strings.Fields(line); len(t.Command) == 0 {
			return nil, fmt.Errorf("command is empty")
		}
	case raw.Command.Argv != nil:
		if t.Command, err = r.renderAll(raw.Command.Argv); err != nil {
			return nil, err
		}
		if len(t.Command) == 0 {
			return nil, fmt.Errorf("command is empty")
		}
	}

	if raw.Env != nil {
		t.Env = make(map[string]string, len(raw.Env))
		for k, v := range raw.Env {
			if t.Env[k], err = r.render(v); err != nil {
				return nil, fmt.Errorf("env %q: %w", k, err)
			}
		}
	}
	return t, nil
}
