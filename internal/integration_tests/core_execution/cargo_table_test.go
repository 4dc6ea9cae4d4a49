package integration_tests

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/taskgrid/internal/app"
	"github.com/vk/taskgrid/internal/testutil"
)

// Test for: every target of the built-in table invokes the expected command,
// and composites invoke their prerequisites in declared order.
func TestCoreExecution_CargoTable(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name  string
		goals []string
		vars  map[string]string
		want  [][]string
	}{
		{name: "build", goals: []string{"build"}, want: [][]string{{"cargo", "build", "--release"}}},
		{name: "dev", goals: []string{"dev"}, want: [][]string{{"cargo", "run"}}},
		{name: "test", goals: []string{"test"}, want: [][]string{{"cargo", "test"}}},
		{name: "fmt", goals: []string{"fmt"}, want: [][]string{{"cargo", "fmt"}}},
		{name: "clean", goals: []string{"clean"}, want: [][]string{{"cargo", "clean"}}},
		{
			name:  "all-local",
			goals: []string{"all-local"},
			want:  [][]string{{"cargo", "clean"}, {"cargo", "fmt"}, {"cargo", "build", "--release"}},
		},
		{
			name:  "pre-commit",
			goals: []string{"pre-commit"},
			want:  [][]string{{"cargo", "fmt"}, {"cargo", "test"}},
		},
		{
			name:  "goals run once each, in order",
			goals: []string{"pre-commit", "fmt", "build"},
			want:  [][]string{{"cargo", "fmt"}, {"cargo", "test"}, {"cargo", "build", "--release"}},
		},
		{
			name:  "cargo override",
			goals: []string{"build"},
			vars:  map[string]string{"cargo": "cross"},
			want:  [][]string{{"cross", "build", "--release"}},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			// --- Act ---
			res := testutil.Run(t, testutil.Options{Config: app.Config{Goals: tc.goals, Vars: tc.vars}})

			// --- Assert ---
			require.NoError(t, res.Err)
			var got [][]string
			for _, c := range res.Recorder.Calls() {
				got = append(got, c.Argv)
			}
			assert.Equal(t, tc.want, got)
		})
	}
}

// Test for: with no goals the default goal is help, which runs no commands.
func TestCoreExecution_DefaultGoalIsHelp(t *testing.T) {
	t.Parallel()

	// --- Act ---
	res := testutil.Run(t, testutil.Options{})

	// --- Assert ---
	require.NoError(t, res.Err)
	assert.Empty(t, res.Recorder.Calls())
	assert.Contains(t, res.Out.String(), "Usage:")
	assert.Contains(t, res.Out.String(), "Show this help. (default)")
}
