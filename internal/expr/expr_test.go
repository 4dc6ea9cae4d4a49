package expr_test

import (
	"testing"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/taskgrid/internal/expr"
	"github.com/zclconf/go-cty/cty"
)

// parseExpr is a test helper to quickly get an hcl.Expression from a string.
func parseExpr(t *testing.T, exprStr string) hcl.Expression {
	t.Helper()
	e, diags := hclsyntax.ParseExpression([]byte(exprStr), "test.hcl", hcl.Pos{Line: 1, Column: 1})
	require.False(t, diags.HasErrors(), "Expression parsing failed: %s", diags.Error())
	return e
}

func TestEvalContext_VarsEnvAndFunctions(t *testing.T) {
	evalCtx := expr.NewEvalContext(
		map[string]string{"cargo": "cargo"},
		[]string{"PROFILE=release", "BROKEN"},
	)

	val, diags := parseExpr(t, `[upper(var.cargo), "--${env.PROFILE}"]`).Value(evalCtx)
	require.False(t, diags.HasErrors(), diags.Error())

	argv, err := expr.ToArgv(val)
	require.NoError(t, err)
	assert.Equal(t, []string{"CARGO", "--release"}, argv)
}

func TestRenderTemplate(t *testing.T) {
	evalCtx := expr.NewEvalContext(map[string]string{"bin": "cargo"}, nil)

	out, err := expr.RenderTemplate(evalCtx, "${var.bin} build --release", "test.yaml")
	require.NoError(t, err)
	assert.Equal(t, "cargo build --release", out)

	_, err = expr.RenderTemplate(evalCtx, "${var.missing}", "test.yaml")
	require.Error(t, err)
	assert.ErrorContains(t, err, "failed to evaluate template")

	plain, err := expr.RenderTemplate(evalCtx, "no interpolation", "test.yaml")
	require.NoError(t, err)
	assert.Equal(t, "no interpolation", plain)
}

func TestToArgv(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		val     cty.Value
		want    []string
		wantErr string
	}{
		{name: "string is split", val: cty.StringVal("cargo  build --release"), want: []string{"cargo", "build", "--release"}},
		{name: "tuple of strings", val: cty.TupleVal([]cty.Value{cty.StringVal("cargo"), cty.StringVal("a b")}), want: []string{"cargo", "a b"}},
		{name: "null", val: cty.NullVal(cty.DynamicPseudoType), want: nil},
		{name: "object is rejected", val: cty.ObjectVal(map[string]cty.Value{"a": cty.StringVal("b")}), wantErr: "must be a string or a list"},
		{name: "unknown is rejected", val: cty.UnknownVal(cty.String), wantErr: "not known"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := expr.ToArgv(tc.val)
			if tc.wantErr != "" {
				require.ErrorContains(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestEnvironMap(t *testing.T) {
	got := expr.EnvironMap([]string{"A=1", "B=x=y", "=skip", "NOEQ"})
	assert.Equal(t, map[string]string{"A": "1", "B": "x=y"}, got)
	assert.Equal(t, []string{"A", "B"}, expr.SortedKeys(got))
}
