package process

import (
	"context"
	"sync"
	"time"
)

// Recorder is a Runner that records invocations instead of running them.
// It is safe for concurrent use and is intended for tests.
type Recorder struct {
	mu    sync.Mutex
	calls []Command
	// Fail maps target names to the error their command returns.
	Fail map[string]error
	// Delay is held for every call, honoring context cancellation.
	Delay time.Duration
	// OnRun, when set, is called with each command before it "runs".
	OnRun func(Command)
}

// Run records the command and returns the configured outcome.
func (r *Recorder) Run(ctx context.Context, c Command) error {
	r.mu.Lock()
	r.calls = append(r.calls, c)
	onRun := r.OnRun
	err := r.Fail[c.Target]
	r.mu.Unlock()

	if onRun != nil {
		onRun(c)
	}
	if r.Delay > 0 {
		select {
		case <-time.After(r.Delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

// Calls returns a copy of the recorded commands in invocation order.
func (r *Recorder) Calls() []Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Command(nil), r.calls...)
}

// Targets returns the target names of the recorded commands.
func (r *Recorder) Targets() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, len(r.calls))
	for i, c := range r.calls {
		names[i] = c.Target
	}
	return names
}
