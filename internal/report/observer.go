package report

import (
	"context"
	"time"

	"github.com/vk/taskgrid/internal/config"
	"github.com/vk/taskgrid/internal/executor"
)

// Observer adapts a Sink to executor.Observer, stamping every event with the
// run id.
type Observer struct {
	RunID string
	Sink  Sink
	// Now is overridable for tests.
	Now func() time.Time
}

// NewObserver returns an Observer for a single run.
func NewObserver(runID string, sink Sink) *Observer {
	return &Observer{RunID: runID, Sink: sink, Now: time.Now}
}

func (o *Observer) now() time.Time {
	if o.Now == nil {
		return time.Now()
	}
	return o.Now()
}

// RunStarted emits a run_started event for the goals.
func (o *Observer) RunStarted(ctx context.Context, goals []string) {
	o.Sink.Emit(ctx, Event{RunID: o.RunID, Kind: RunStarted, Goals: goals, Time: o.now()})
}

// RunFinished emits a run_finished event. Status is "ok" unless err is set.
func (o *Observer) RunFinished(ctx context.Context, d time.Duration, err error) {
	ev := Event{RunID: o.RunID, Kind: RunFinished, Status: "ok", Duration: d, Time: o.now()}
	if err != nil {
		ev.Status = "failed"
		ev.Error = err.Error()
	}
	o.Sink.Emit(ctx, ev)
}

// TargetStarted implements executor.Observer.
func (o *Observer) TargetStarted(ctx context.Context, t *config.Target) {
	o.Sink.Emit(ctx, Event{RunID: o.RunID, Kind: TargetStarted, Target: t.Name, Time: o.now()})
}

// TargetFinished implements executor.Observer.
func (o *Observer) TargetFinished(ctx context.Context, r executor.TargetResult) {
	ev := Event{
		RunID:    o.RunID,
		Kind:     TargetFinished,
		Target:   r.Target,
		Status:   r.Status.String(),
		Duration: r.Duration,
		Time:     o.now(),
	}
	if r.Err != nil {
		ev.Error = r.Err.Error()
	}
	o.Sink.Emit(ctx, ev)
}

var _ executor.Observer = (*Observer)(nil)
