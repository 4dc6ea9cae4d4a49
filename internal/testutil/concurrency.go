package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/vk/taskgrid/internal/process"
)

// ExecutionRecord holds the start and end times of a single command.
type ExecutionRecord struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether the two executions were running at the same time.
func (r ExecutionRecord) Overlaps(other ExecutionRecord) bool {
	return r.Start.Before(other.End) && other.Start.Before(r.End)
}

// TimingRunner is a process.Runner that holds every command for Delay and
// records when it ran, keyed by target name.
type TimingRunner struct {
	Delay time.Duration

	mu      sync.Mutex
	records map[string]ExecutionRecord
}

// NewTimingRunner returns a TimingRunner with the given per-command delay.
func NewTimingRunner(delay time.Duration) *TimingRunner {
	return &TimingRunner{Delay: delay, records: make(map[string]ExecutionRecord)}
}

// Run implements process.Runner.
func (r *TimingRunner) Run(ctx context.Context, c process.Command) error {
	start := time.Now()
	select {
	case <-time.After(r.Delay):
	case <-ctx.Done():
		return ctx.Err()
	}
	r.mu.Lock()
	r.records[c.Target] = ExecutionRecord{Start: start, End: time.Now()}
	r.mu.Unlock()
	return nil
}

// Records returns a copy of the execution records.
func (r *TimingRunner) Records() map[string]ExecutionRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]ExecutionRecord, len(r.records))
	for k, v := range r.records {
		out[k] = v
	}
	return out
}
