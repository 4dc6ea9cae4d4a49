// Package executor runs a dag.Plan: command targets through a
// process.Runner, builtin targets through the registry, and composite
// targets as pure synchronization points.
package executor

import (
	"context"
	"time"

	"github.com/vk/taskgrid/internal/config"
)

// Status is the lifecycle state of a planned target.
type Status int

const (
	Pending Status = iota
	Running
	Done
	Failed
	// Skipped targets never started because a dependency failed or the run
	// stopped after a failure.
	Skipped
	// Canceled targets never started because the run's context ended.
	Canceled
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Done:
		return "done"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	case Canceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// TargetResult is the outcome of a single planned target.
type TargetResult struct {
	Target   string
	Kind     config.Kind
	Status   Status
	Err      error
	Duration time.Duration
}

// Summary collects the results of a run in plan order.
type Summary struct {
	Results  []TargetResult
	Duration time.Duration
}

// Count returns how many targets ended in the given status.
func (s *Summary) Count(status Status) int {
	n := 0
	for _, r := range s.Results {
		if r.Status == status {
			n++
		}
	}
	return n
}

// Ran returns the names of the targets that started, in plan order.
func (s *Summary) Ran() []string {
	var names []string
	for _, r := range s.Results {
		if r.Status == Done || r.Status == Failed {
			names = append(names, r.Target)
		}
	}
	return names
}

// Observer is notified as targets start and finish. All calls come from the
// executor's dispatch goroutine, one at a time.
type Observer interface {
	TargetStarted(ctx context.Context, t *config.Target)
	TargetFinished(ctx context.Context, r TargetResult)
}

// Options tune a run.
type Options struct {
	// Jobs is the number of targets that may run at once. Values below 1
	// mean 1.
	Jobs int
	// KeepGoing continues with targets that do not depend on a failure
	// instead of stopping the run.
	KeepGoing bool
	// Dir is the base directory relative target directories resolve against.
	Dir      string
	Observer Observer
}
