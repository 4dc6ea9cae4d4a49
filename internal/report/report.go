// Package report publishes run events: when a run starts and finishes and
// when each target starts and finishes. Sinks decide where events go.
package report

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind identifies an event.
type Kind string

const (
	RunStarted     Kind = "run_started"
	TargetStarted  Kind = "target_started"
	TargetFinished Kind = "target_finished"
	RunFinished    Kind = "run_finished"
)

// Event is a single run event.
type Event struct {
	RunID    string
	Kind     Kind
	Target   string
	Goals    []string
	Status   string
	Duration time.Duration
	Error    string
	Time     time.Time
}

// Payload renders the event as a JSON-friendly map.
func (e Event) Payload() map[string]any {
	p := map[string]any{
		"run_id": e.RunID,
		"kind":   string(e.Kind),
		"time":   e.Time.UTC().Format(time.RFC3339Nano),
	}
	if e.Target != "" {
		p["target"] = e.Target
	}
	if len(e.Goals) > 0 {
		p["goals"] = e.Goals
	}
	if e.Status != "" {
		p["status"] = e.Status
	}
	if e.Duration > 0 {
		p["duration_ms"] = e.Duration.Milliseconds()
	}
	if e.Error != "" {
		p["error"] = e.Error
	}
	return p
}

// Sink receives events. Emit must not block for long; it is called from the
// executor's dispatch loop.
type Sink interface {
	Emit(ctx context.Context, ev Event)
	Close() error
}

// NewRunID returns a fresh identifier for a run.
func NewRunID() string {
	return uuid.NewString()
}

// Multi fans events out to several sinks.
type Multi []Sink

// Emit forwards ev to every sink.
func (m Multi) Emit(ctx context.Context, ev Event) {
	for _, s := range m {
		s.Emit(ctx, ev)
	}
}

// Close closes every sink and joins their errors.
func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// MemorySink keeps events in memory. It is safe for concurrent use.
type MemorySink struct {
	mu     sync.Mutex
	events []Event
	closed bool
}

// Emit appends ev.
func (m *MemorySink) Emit(_ context.Context, ev Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
}

// Close marks the sink closed.
func (m *MemorySink) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Events returns a copy of the recorded events.
func (m *MemorySink) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events...)
}

// Closed reports whether Close was called.
func (m *MemorySink) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
