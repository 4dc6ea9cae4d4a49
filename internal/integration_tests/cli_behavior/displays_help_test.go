package integration_tests

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/taskgrid/internal/app"
	"github.com/vk/taskgrid/internal/testutil"
)

// Test for: help lists targets in declaration order with the default marked.
func TestCliBehavior_DisplaysHelp(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	taskfile := `
default = "build"
variable "cargo" { default = "cargo" }
target "build" {
  description = "Build it."
  command     = [var.cargo, "build"]
}
target "check" { command = "cargo check" }
target "ci"    { depends_on = ["check", "build"] }
`

	// --- Act ---
	res := testutil.Run(t, testutil.Options{
		Files:  map[string]string{"Taskfile.hcl": taskfile},
		Config: app.Config{Goals: []string{"help"}},
	})

	// --- Assert ---
	require.NoError(t, res.Err)
	out := res.Out.String()
	assert.Contains(t, out, "Usage:")
	assert.Contains(t, out, "Build it. (default)")
	assert.Contains(t, out, "Runs `cargo check`.")
	assert.Contains(t, out, "Runs check, build.")
	assert.Contains(t, out, `cargo  = "cargo"`)
	assert.Less(t, strings.Index(out, "build"), strings.Index(out, "check"))
	assert.Less(t, strings.Index(out, "  check"), strings.Index(out, "  ci"))
	assert.Empty(t, res.Recorder.Calls())
}

// Test for: the targets builtin prints one name per line.
func TestCliBehavior_TargetsBuiltin(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	taskfile := `
target "build" { command = "cargo build" }
target "list"  { builtin = "targets" }
`

	// --- Act ---
	res := testutil.Run(t, testutil.Options{
		Files:  map[string]string{"Taskfile.hcl": taskfile},
		Config: app.Config{Goals: []string{"list"}},
	})

	// --- Assert ---
	require.NoError(t, res.Err)
	assert.Equal(t, "build\nlist\nhelp\n", res.Out.String())
}

// Test for: dry-run prints commands instead of running them.
func TestCliBehavior_DryRun(t *testing.T) {
	t.Parallel()

	// --- Act ---
	res := testutil.Run(t, testutil.Options{Config: app.Config{Goals: []string{"pre-commit"}, DryRun: true}})

	// --- Assert ---
	require.NoError(t, res.Err)
	assert.Equal(t, "(cd "+res.Dir+" && cargo fmt)\n(cd "+res.Dir+" && cargo test)\n", res.Out.String())
}
