// Package expr holds the HCL evaluation helpers shared by the task file
// loaders: the evaluation context (variables, environment, functions),
// template rendering, and conversion of values into command argv.
package expr

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Functions are the functions available to every expression in a task file.
func Functions() map[string]function.Function {
	return map[string]function.Function{
		"upper":     stdlib.UpperFunc,
		"lower":     stdlib.LowerFunc,
		"join":      stdlib.JoinFunc,
		"split":     stdlib.SplitFunc,
		"trimspace": stdlib.TrimSpaceFunc,
	}
}

// NewEvalContext builds the evaluation context exposing `var.<name>` for
// the given variables and `env.<NAME>` for the given environment, which is
// in os.Environ() form.
func NewEvalContext(vars map[string]string, environ []string) *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"var": StringObject(vars),
			"env": StringObject(EnvironMap(environ)),
		},
		Functions: Functions(),
	}
}

// StringObject converts a string map into a cty object value.
func StringObject(m map[string]string) cty.Value {
	if len(m) == 0 {
		return cty.EmptyObjectVal
	}
	attrs := make(map[string]cty.Value, len(m))
	for k, v := range m {
		attrs[k] = cty.StringVal(v)
	}
	return cty.ObjectVal(attrs)
}

// EnvironMap splits KEY=VALUE pairs into a map. Entries without '=' are ignored.
func EnvironMap(environ []string) map[string]string {
	out := make(map[string]string, len(environ))
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		out[k] = v
	}
	return out
}

// RenderTemplate evaluates src as an HCL template ("${var.x} build") and
// returns the resulting string.
func RenderTemplate(evalCtx *hcl.EvalContext, src, filename string) (string, error) {
	tmpl, diags := hclsyntax.ParseTemplate([]byte(src), filename, hcl.InitialPos)
	if diags.HasErrors() {
		return "", fmt.Errorf("invalid template %q: %w", src, diags)
	}
	val, diags := tmpl.Value(evalCtx)
	if diags.HasErrors() {
		return "", fmt.Errorf("failed to evaluate template %q: %w", src, diags)
	}
	return ToString(val)
}

// ToString converts a known, non-null primitive value to a string.
func ToString(val cty.Value) (string, error) {
	if val.IsNull() {
		return "", nil
	}
	if !val.IsWhollyKnown() {
		return "", fmt.Errorf("value is not known")
	}
	strVal, err := convert.Convert(val, cty.String)
	if err != nil {
		return "", fmt.Errorf("expected a string, got %s", val.Type().FriendlyName())
	}
	return strVal.AsString(), nil
}

// ToArgv converts a command value into argv. A string is split on
// whitespace; a list or tuple must contain only strings. Null yields nil.
func ToArgv(val cty.Value) ([]string, error) {
	if val.IsNull() {
		return nil, nil
	}
	if !val.IsWhollyKnown() {
		return nil, fmt.Errorf("command is not known")
	}

	ty := val.Type()
	if ty.IsPrimitiveType() {
		s, err := ToString(val)
		if err != nil {
			return nil, err
		}
		return strings.Fields(s), nil
	}

	if !ty.IsListType() && !ty.IsTupleType() {
		return nil, fmt.Errorf("command must be a string or a list of strings, got %s", ty.FriendlyName())
	}
	listVal, err := convert.Convert(val, cty.List(cty.String))
	if err != nil {
		return nil, fmt.Errorf("command must be a list of strings: %w", err)
	}
	var argv []string
	if err := gocty.FromCtyValue(listVal, &argv); err != nil {
		return nil, fmt.Errorf("command must be a list of strings: %w", err)
	}
	return argv, nil
}

// SortedKeys returns the keys of m in lexical order.
func SortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
