// Package testutil provides a harness for end-to-end tests of the app: it
// writes task files to a temporary directory, runs the app with a recording
// runner, and captures output, logs and report events.
package testutil

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/taskgrid/internal/app"
	"github.com/vk/taskgrid/internal/process"
	"github.com/vk/taskgrid/internal/report"
)

// SafeBuffer is a thread-safe buffer for capturing output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// Options tune a harness run.
type Options struct {
	// Files are written below the temporary directory, keyed by relative path.
	Files map[string]string
	// Config is the base configuration; Dir is set to the temporary directory.
	Config app.Config
	// Recorder replaces the command runner. A fresh one is used when nil.
	Recorder *process.Recorder
	// Runner, when set, is used instead of Recorder. With DryRun and neither
	// set, the app's dry runner is kept.
	Runner process.Runner
}

// Result holds the outcomes of a harness run.
type Result struct {
	Dir      string
	Out      *SafeBuffer
	Log      *SafeBuffer
	Err      error
	App      *app.App
	Recorder *process.Recorder
	Sink     *report.MemorySink
}

// Events returns the kinds and targets of the recorded report events in the
// form "kind" or "kind:target".
func (r *Result) Events() []string {
	var out []string
	for _, ev := range r.Sink.Events() {
		s := string(ev.Kind)
		if ev.Target != "" {
			s += ":" + ev.Target
		}
		out = append(out, s)
	}
	return out
}

// Run builds and runs an App with a background context.
func Run(t *testing.T, opts Options) *Result {
	t.Helper()
	return RunWithContext(context.Background(), t, opts)
}

// RunWithContext builds and runs an App. Construction errors and run errors
// both end up in Result.Err; App is nil when construction failed.
func RunWithContext(ctx context.Context, t *testing.T, opts Options) *Result {
	t.Helper()

	dir := t.TempDir()
	for name, content := range opts.Files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	res := &Result{
		Dir:      dir,
		Out:      &SafeBuffer{},
		Log:      &SafeBuffer{},
		Recorder: opts.Recorder,
		Sink:     &report.MemorySink{},
	}
	if res.Recorder == nil {
		res.Recorder = &process.Recorder{}
	}
	appOpts := []app.Option{app.WithSink(res.Sink)}
	switch {
	case opts.Runner != nil:
		appOpts = append(appOpts, app.WithRunner(opts.Runner))
	case opts.Config.DryRun && opts.Recorder == nil:
		// Keep the app's own dry runner so its output is captured.
	default:
		appOpts = append(appOpts, app.WithRunner(res.Recorder))
	}

	cfgIn := opts.Config
	cfgIn.Dir = dir
	if cfgIn.LogLevel == "" {
		cfgIn.LogLevel = "debug"
	}
	cfg, err := app.NewConfig(cfgIn)
	require.NoError(t, err)

	t.Cleanup(func() {
		if os.Getenv("TASKGRID_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), res.Log.String())
		}
	})

	a, err := app.NewApp(res.Out, res.Log, cfg, appOpts...)
	if err != nil {
		res.Err = err
		return res
	}
	res.App = a
	res.Err = a.Run(ctx)
	return res
}
