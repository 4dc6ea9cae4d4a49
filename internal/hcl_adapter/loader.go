package hcl_adapter

import (
	"context"
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/taskgrid/internal/config"
	"github.com/vk/taskgrid/internal/ctxlog"
	"github.com/vk/taskgrid/internal/expr"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct {
	// Environ is exposed as `env.*`. Defaults to os.Environ.
	Environ func() []string
}

// NewLoader creates a new HCL task file loader.
func NewLoader() *Loader {
	return &Loader{Environ: os.Environ}
}

// Load parses the HCL source and translates it into the agnostic model.
func (l *Loader) Load(ctx context.Context, src config.Source) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx).With("file", src.Filename)
	logger.Debug("HCL loader started.")

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src.Data, src.Filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", src.Filename, diags)
	}

	environ := l.environ()

	var vroot variablesRoot
	if diags := gohcl.DecodeBody(file.Body, nil, &vroot); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode variables in %s: %w", src.Filename, diags)
	}
	vars, err := evalVariables(vroot.Variables, src.Vars, environ)
	if err != nil {
		return nil, fmt.Errorf("in %s: %w", src.Filename, err)
	}
	logger.Debug("Variables evaluated.", "count", len(vars))

	evalCtx := expr.NewEvalContext(vars, environ)

	var root fileRoot
	if diags := gohcl.DecodeBody(file.Body, evalCtx, &root); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", src.Filename, diags)
	}

	model := &config.Model{
		Source:        src.Filename,
		DefaultTarget: root.Default,
		Variables:     vars,
	}
	for _, t := range root.Targets {
		target, err := translateTarget(t, evalCtx)
		if err != nil {
			return nil, fmt.Errorf("in %s: %w", src.Filename, err)
		}
		model.Targets = append(model.Targets, target)
	}

	logger.Debug("HCL loading complete.", "targets", len(model.Targets), "default", model.DefaultTarget)
	return model, nil
}

func (l *Loader) environ() []string {
	if l.Environ == nil {
		return os.Environ()
	}
	return l.Environ()
}

// evalVariables resolves variable defaults and applies overrides. Defaults
// may reference `env.*` but not other variables.
func evalVariables(defs []*Variable, overrides map[string]string, environ []string) (map[string]string, error) {
	envCtx := expr.NewEvalContext(nil, environ)
	vars := make(map[string]string, len(defs)+len(overrides))

	for _, def := range defs {
		if _, dup := vars[def.Name]; dup {
			return nil, fmt.Errorf("variable %q is declared more than once", def.Name)
		}
		vars[def.Name] = ""
		if !isExprDefined(def.Default) {
			continue
		}
		val, diags := def.Default.Value(envCtx)
		if diags.HasErrors() {
			return nil, fmt.Errorf("variable %q: %w", def.Name, diags)
		}
		s, err := expr.ToString(val)
		if err != nil {
			return nil, fmt.Errorf("variable %q: %w", def.Name, err)
		}
		vars[def.Name] = s
	}

	for k, v := range overrides {
		vars[k] = v
	}
	return vars, nil
}

func translateTarget(t *Target, evalCtx *hcl.EvalContext) (*config.Target, error) {
	target := &config.Target{
		Name:        t.Name,
		Description: t.Description,
		Dir:         t.Dir,
		Env:         t.Env,
		DependsOn:   t.DependsOn,
		Parallel:    t.Parallel,
		Builtin:     t.Builtin,
	}

	if isExprDefined(t.Command) {
		val, diags := t.Command.Value(evalCtx)
		if diags.HasErrors() {
			return nil, fmt.Errorf("target %q: %w", t.Name, diags)
		}
		argv, err := expr.ToArgv(val)
		if err != nil {
			return nil, fmt.Errorf("target %q: %w", t.Name, err)
		}
		if len(argv) == 0 {
			return nil, fmt.Errorf("target %q: command is empty", t.Name)
		}
		target.Command = argv
	}
	return target, nil
}

// isExprDefined reports whether an optional attribute was present in the
// source. gohcl fills omitted hcl.Expression fields with a zero-width
// placeholder, so a nil check is not enough.
func isExprDefined(e hcl.Expression) bool {
	if e == nil {
		return false
	}
	r := e.Range()
	return r.End.Byte > r.Start.Byte
}
