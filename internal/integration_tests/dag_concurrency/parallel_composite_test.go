package integration_tests

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/taskgrid/internal/app"
	"github.com/vk/taskgrid/internal/testutil"
)

const checksTaskfile = `
target "fmt"    { command = "cargo fmt --check" }
target "clippy" { command = "cargo clippy" }
target "test"   { command = "cargo test" }

target "checks" {
  depends_on = ["fmt", "clippy", "test"]
  parallel   = true
}

target "pre-commit" {
  depends_on = ["fmt", "clippy", "test"]
}
`

// Test for: prerequisites of a parallel composite run concurrently.
func TestDagConcurrency_ParallelCompositeOverlaps(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	runner := testutil.NewTimingRunner(100 * time.Millisecond)

	// --- Act ---
	res := testutil.Run(t, testutil.Options{
		Files:  map[string]string{"Taskfile.hcl": checksTaskfile},
		Runner: runner,
		Config: app.Config{Goals: []string{"checks"}, Jobs: 3},
	})

	// --- Assert ---
	require.NoError(t, res.Err)
	records := runner.Records()
	require.Len(t, records, 3)
	assert.True(t, records["fmt"].Overlaps(records["clippy"]), "fmt and clippy did not run in parallel")
	assert.True(t, records["clippy"].Overlaps(records["test"]), "clippy and test did not run in parallel")
}

// Test for: a sequenced composite stays serial even with spare workers.
func TestDagConcurrency_SequencedCompositeIsSerial(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	runner := testutil.NewTimingRunner(30 * time.Millisecond)

	// --- Act ---
	res := testutil.Run(t, testutil.Options{
		Files:  map[string]string{"Taskfile.hcl": checksTaskfile},
		Runner: runner,
		Config: app.Config{Goals: []string{"pre-commit"}, Jobs: 3},
	})

	// --- Assert ---
	require.NoError(t, res.Err)
	records := runner.Records()
	require.Len(t, records, 3)
	assert.False(t, records["fmt"].Overlaps(records["clippy"]))
	assert.False(t, records["clippy"].Overlaps(records["test"]))
	assert.False(t, records["clippy"].Start.Before(records["fmt"].End))
	assert.False(t, records["test"].Start.Before(records["clippy"].End))
}

// Test for: a composite finishes only after all of its prerequisites.
func TestDagConcurrency_FanInWaitsForAll(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	runner := testutil.NewTimingRunner(50 * time.Millisecond)

	// --- Act ---
	res := testutil.Run(t, testutil.Options{
		Files:  map[string]string{"Taskfile.hcl": checksTaskfile},
		Runner: runner,
		Config: app.Config{Goals: []string{"checks"}, Jobs: 2},
	})

	// --- Assert ---
	require.NoError(t, res.Err)
	events := res.Events()
	assert.Equal(t, "target_finished:checks", events[len(events)-2])
	assert.Len(t, runner.Records(), 3)
}
