package app_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/taskgrid/internal/app"
	"github.com/vk/taskgrid/internal/defaults"
	"github.com/vk/taskgrid/internal/process"
	"github.com/vk/taskgrid/internal/testutil"
)

func TestNewConfig(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		in      app.Config
		wantErr string
	}{
		{name: "defaults", in: app.Config{}},
		{name: "json debug", in: app.Config{LogFormat: "json", LogLevel: "debug", Jobs: 4}},
		{name: "bad format", in: app.Config{LogFormat: "xml"}, wantErr: "invalid log-format"},
		{name: "bad level", in: app.Config{LogLevel: "loud"}, wantErr: "invalid log-level"},
		{name: "negative jobs", in: app.Config{Jobs: -2}, wantErr: "jobs must be at least 1"},
		{name: "bad port", in: app.Config{HealthcheckPort: 70000}, wantErr: "healthcheck-port out of range"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg, err := app.NewConfig(tc.in)
			if tc.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.GreaterOrEqual(t, cfg.Jobs, 1)
			assert.NotEmpty(t, cfg.LogFormat)
			assert.NotEmpty(t, cfg.LogLevel)
			assert.Equal(t, ".", cfg.Dir)
		})
	}
}

func TestNewConfig_WatchPathsRelativeToDir(t *testing.T) {
	cfg, err := app.NewConfig(app.Config{Dir: "/src", Watch: true, WatchPaths: []string{"crates", "/etc/cargo"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"/src/crates", "/etc/cargo"}, cfg.WatchPaths)
}

func TestNewConfig_WatchDefaultsToDir(t *testing.T) {
	cfg, err := app.NewConfig(app.Config{Dir: "/src", Watch: true})

	require.NoError(t, err)
	assert.Equal(t, []string{"/src"}, cfg.WatchPaths)
}

func TestNewApp_FallsBackToBuiltinTable(t *testing.T) {
	t.Parallel()

	// --- Act ---
	res := testutil.Run(t, testutil.Options{Config: app.Config{Goals: []string{"build"}}})

	// --- Assert ---
	require.NoError(t, res.Err)
	assert.Equal(t, defaults.Filename, res.App.Model().Source)
	calls := res.Recorder.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"cargo", "build", "--release"}, calls[0].Argv)
	assert.Equal(t, res.Dir, calls[0].Dir)
}

func TestNewApp_DiscoveryOrder(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	files := map[string]string{
		"Taskfile.hcl":  `target "which" { command = "echo hcl" }`,
		"taskgrid.yaml": "targets:\n  which:\n    command: echo yaml\n",
	}

	// --- Act ---
	res := testutil.Run(t, testutil.Options{Files: files, Config: app.Config{Goals: []string{"which"}}})

	// --- Assert ---
	require.NoError(t, res.Err)
	assert.Equal(t, filepath.Join(res.Dir, "Taskfile.hcl"), res.App.Model().Source)
	assert.Equal(t, []string{"echo", "hcl"}, res.Recorder.Calls()[0].Argv)
}

func TestNewApp_ExplicitYAMLFile(t *testing.T) {
	t.Parallel()

	files := map[string]string{
		"build/tasks.yml": "default: hello\ntargets:\n  hello:\n    command: [echo, hi]\n",
	}

	res := testutil.Run(t, testutil.Options{Files: files, Config: app.Config{TaskFile: "build/tasks.yml"}})

	require.NoError(t, res.Err)
	assert.Equal(t, []string{"hello"}, res.Recorder.Targets())
}

func TestNewApp_LoadErrors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		files   map[string]string
		cfg     app.Config
		wantErr string
	}{
		{
			name:    "missing explicit file",
			cfg:     app.Config{TaskFile: "nope.hcl"},
			wantErr: "failed to read task file",
		},
		{
			name:    "unknown builtin",
			files:   map[string]string{"Taskfile.hcl": `target "x" { builtin = "teleport" }`},
			wantErr: `uses unknown builtin "teleport"`,
		},
		{
			name:    "unknown dependency",
			files:   map[string]string{"Taskfile.hcl": `target "x" { depends_on = ["y"] }`},
			wantErr: `depends on unknown target "y"`,
		},
		{
			name:    "syntax error",
			files:   map[string]string{"Taskfile.hcl": `target "x" {`},
			wantErr: "failed to parse HCL file",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			res := testutil.Run(t, testutil.Options{Files: tc.files, Config: tc.cfg})
			require.Error(t, res.Err)
			assert.Nil(t, res.App)
			assert.Contains(t, res.Err.Error(), "failed to load configuration")
			assert.Contains(t, res.Err.Error(), tc.wantErr)
		})
	}
}

func TestRun_ReportsEvents(t *testing.T) {
	t.Parallel()

	// --- Act ---
	res := testutil.Run(t, testutil.Options{Config: app.Config{Goals: []string{"pre-commit"}}})

	// --- Assert ---
	require.NoError(t, res.Err)
	assert.Equal(t, []string{
		"run_started",
		"target_started:fmt", "target_finished:fmt",
		"target_started:test", "target_finished:test",
		"target_started:pre-commit", "target_finished:pre-commit",
		"run_finished",
	}, res.Events())

	events := res.Sink.Events()
	runID := events[0].RunID
	assert.NotEmpty(t, runID)
	for _, ev := range events {
		assert.Equal(t, runID, ev.RunID)
	}
	assert.Equal(t, "ok", events[len(events)-1].Status)
	assert.True(t, res.Sink.Closed())
}

func TestRun_FailureIsReturnedAndReported(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	boom := &process.ExitError{Command: "cargo test", Code: 101}
	rec := &process.Recorder{Fail: map[string]error{"test": boom}}

	// --- Act ---
	res := testutil.Run(t, testutil.Options{Recorder: rec, Config: app.Config{Goals: []string{"pre-commit"}}})

	// --- Assert ---
	require.Error(t, res.Err)
	var exitErr *process.ExitError
	require.True(t, errors.As(res.Err, &exitErr))
	assert.Equal(t, 101, exitErr.Code)
	events := res.Sink.Events()
	assert.Equal(t, "failed", events[len(events)-1].Status)
}

func TestRun_DryRunPrintsCommands(t *testing.T) {
	t.Parallel()

	files := map[string]string{"Taskfile.hcl": `
target "build" { command = ["cargo", "build"] }
target "docs" {
  command = "cargo doc"
  dir     = "docs"
}
target "all" { depends_on = ["build", "docs"] }
`}

	res := testutil.Run(t, testutil.Options{Files: files, Config: app.Config{DryRun: true, Goals: []string{"all"}}})

	require.NoError(t, res.Err)
	assert.Equal(t,
		"(cd "+res.Dir+" && cargo build)\n(cd "+filepath.Join(res.Dir, "docs")+" && cargo doc)\n",
		res.Out.String())
}

func TestRun_WatchRerunsOnChange(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	dir := t.TempDir()
	rec := &process.Recorder{}
	cfg, err := app.NewConfig(app.Config{Dir: dir, Goals: []string{"test"}, Watch: true, LogLevel: "debug"})
	require.NoError(t, err)
	a, err := app.NewApp(&testutil.SafeBuffer{}, &testutil.SafeBuffer{}, cfg, app.WithRunner(rec))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	// --- Act & Assert ---
	require.Eventually(t, func() bool { return len(rec.Calls()) == 1 }, 5*time.Second, 10*time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.rs"), []byte("fn main() {}"), 0o600))
	require.Eventually(t, func() bool { return len(rec.Calls()) >= 2 }, 5*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	for _, target := range rec.Targets() {
		assert.Equal(t, "test", target)
	}
}

func TestRun_WatchPicksUpTaskFileEdits(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	dir := t.TempDir()
	taskfile := filepath.Join(dir, "Taskfile.hcl")
	require.NoError(t, os.WriteFile(taskfile, []byte(`target "go" { command = "echo one" }`), 0o600))
	rec := &process.Recorder{}
	cfg, err := app.NewConfig(app.Config{Dir: dir, Goals: []string{"go"}, Watch: true})
	require.NoError(t, err)
	a, err := app.NewApp(&testutil.SafeBuffer{}, &testutil.SafeBuffer{}, cfg, app.WithRunner(rec))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	// --- Act ---
	require.Eventually(t, func() bool { return len(rec.Calls()) == 1 }, 5*time.Second, 10*time.Millisecond)
	require.NoError(t, os.WriteFile(taskfile, []byte(`target "go" { command = "echo two" }`), 0o600))
	require.Eventually(t, func() bool { return len(rec.Calls()) >= 2 }, 5*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	// --- Assert ---
	calls := rec.Calls()
	assert.Equal(t, []string{"echo", "one"}, calls[0].Argv)
	assert.Equal(t, []string{"echo", "two"}, calls[len(calls)-1].Argv)
}
