package executor

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/vk/taskgrid/internal/config"
	"github.com/vk/taskgrid/internal/ctxlog"
	"github.com/vk/taskgrid/internal/dag"
	"github.com/vk/taskgrid/internal/process"
	"github.com/vk/taskgrid/internal/registry"
)

// Executor runs the steps of one plan.
type Executor struct {
	plan     *dag.Plan
	model    *config.Model
	runner   process.Runner
	registry *registry.Registry
	out      io.Writer
	opts     Options
}

// New creates an executor. Builtin output goes to out.
func New(plan *dag.Plan, model *config.Model, runner process.Runner, reg *registry.Registry, out io.Writer, opts Options) *Executor {
	if opts.Jobs < 1 {
		opts.Jobs = 1
	}
	return &Executor{
		plan:     plan,
		model:    model,
		runner:   runner,
		registry: reg,
		out:      out,
		opts:     opts,
	}
}

// outcome is what a worker reports back to the dispatcher.
type outcome struct {
	index    int
	err      error
	duration time.Duration
}

// Run executes the plan and returns its summary. A non-nil error names the
// targets that failed and wraps the first root cause.
//
// A single dispatcher goroutine owns all bookkeeping. It hands the ready step
// with the lowest plan index to the worker pool, so a one-worker run follows
// plan order exactly.
func (e *Executor) Run(ctx context.Context) (*Summary, error) {
	logger := ctxlog.FromContext(ctx)
	start := time.Now()

	s := newState(e.plan)
	workers := min(e.opts.Jobs, max(len(e.plan.Steps), 1))

	jobs := make(chan *dag.Step)
	results := make(chan outcome)
	var wg sync.WaitGroup

	logger.Debug("Starting worker pool.", "workers", workers, "steps", len(e.plan.Steps))
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			e.worker(ctx, workerID, jobs, results)
		}(i)
	}

	running := 0
	stopped := false
	for {
		for !stopped && running < workers {
			if ctx.Err() != nil {
				logger.Warn("Context canceled, no further targets will start.")
				stopped = true
				break
			}
			idx, ok := s.popReady()
			if !ok {
				break
			}
			step := e.plan.Steps[idx]
			s.status[idx] = Running
			running++
			if e.opts.Observer != nil {
				e.opts.Observer.TargetStarted(ctx, step.Target)
			}
			jobs <- step
		}
		if running == 0 {
			break
		}

		res := <-results
		running--
		if res.err != nil {
			logger.Debug("Target failed.", "target", e.plan.Steps[res.index].Target.Name, "error", res.err)
			e.finish(ctx, s, res.index, Failed, res.err, res.duration)
			if !e.opts.KeepGoing {
				stopped = true
			}
			continue
		}
		e.finish(ctx, s, res.index, Done, nil, res.duration)
	}
	close(jobs)
	wg.Wait()

	// Whatever is still pending never got a chance to start.
	leftover := Skipped
	if ctx.Err() != nil {
		leftover = Canceled
	}
	for i := range e.plan.Steps {
		if s.status[i] == Pending {
			e.finish(ctx, s, i, leftover, nil, 0)
		}
	}

	summary := &Summary{Results: s.results, Duration: time.Since(start)}
	return summary, e.runError(ctx, summary)
}

// worker executes the steps it is handed until the jobs channel closes.
func (e *Executor) worker(ctx context.Context, workerID int, jobs <-chan *dag.Step, results chan<- outcome) {
	for step := range jobs {
		stepCtx, logger := ctxlog.With(ctx, "workerID", workerID, "target", step.Target.Name)
		logger.Debug("Worker picked up target.")

		began := time.Now()
		err := e.execute(stepCtx, step.Target)
		results <- outcome{index: step.Index, err: err, duration: time.Since(began)}
	}
}

// execute performs the action of a single target.
func (e *Executor) execute(ctx context.Context, t *config.Target) error {
	switch t.Kind() {
	case config.CommandKind:
		return e.runner.Run(ctx, process.Command{
			Target: t.Name,
			Argv:   t.Command,
			Dir:    e.resolveDir(t.Dir),
			Env:    t.Env,
		})
	case config.BuiltinKind:
		if e.registry == nil {
			return fmt.Errorf("target %q: no builtin registry configured", t.Name)
		}
		return e.registry.Run(ctx, &registry.Env{Out: e.out, Model: e.model, Target: t})
	default:
		return nil
	}
}

func (e *Executor) resolveDir(dir string) string {
	if dir == "" {
		return e.opts.Dir
	}
	if filepath.IsAbs(dir) || e.opts.Dir == "" {
		return dir
	}
	return filepath.Join(e.opts.Dir, dir)
}

// finish records the final status of step i and propagates it: dependents of
// an unsuccessful step are skipped, everything else is released.
func (e *Executor) finish(ctx context.Context, s *state, i int, status Status, err error, d time.Duration) {
	step := e.plan.Steps[i]
	s.status[i] = status
	s.results[i] = TargetResult{
		Target:   step.Target.Name,
		Kind:     step.Target.Kind(),
		Status:   status,
		Err:      err,
		Duration: d,
	}
	if e.opts.Observer != nil {
		e.opts.Observer.TargetFinished(ctx, s.results[i])
	}

	for _, j := range s.dependents[i] {
		if s.status[j] != Pending {
			continue
		}
		if status != Done {
			ctxlog.FromContext(ctx).Warn("Skipping dependent target due to upstream failure.", "target", e.plan.Steps[j].Target.Name, "dependency", step.Target.Name)
			e.finish(ctx, s, j, Skipped, fmt.Errorf("skipped due to upstream failure of '%s'", step.Target.Name), 0)
			continue
		}
		s.release(j)
	}
	for _, j := range s.successors[i] {
		if s.status[j] == Pending {
			s.release(j)
		}
	}
}

// runError builds the run error from the summary.
func (e *Executor) runError(ctx context.Context, summary *Summary) error {
	var failed []string
	var rootCause error
	for _, r := range summary.Results {
		if r.Status != Failed {
			continue
		}
		failed = append(failed, r.Target)
		if rootCause == nil {
			rootCause = r.Err
		}
	}
	if rootCause != nil {
		return fmt.Errorf("execution failed for %s: %w", strings.Join(failed, ", "), rootCause)
	}
	if ctx.Err() != nil && summary.Count(Canceled) > 0 {
		return fmt.Errorf("execution canceled: %w", ctx.Err())
	}
	return nil
}

// state is the dispatcher's bookkeeping. It is only touched by the
// dispatcher goroutine.
type state struct {
	status  []Status
	results []TargetResult
	// remaining counts unsatisfied Deps and After edges per step.
	remaining []int
	// dependents[i] are steps with i in Deps; successors[i] have i in After.
	dependents [][]int
	successors [][]int
	// ready is kept sorted so the lowest plan index is dispatched first.
	ready []int
}

func newState(plan *dag.Plan) *state {
	n := len(plan.Steps)
	s := &state{
		status:     make([]Status, n),
		results:    make([]TargetResult, n),
		remaining:  make([]int, n),
		dependents: make([][]int, n),
		successors: make([][]int, n),
	}
	for i, step := range plan.Steps {
		s.remaining[i] = len(step.Deps) + len(step.After)
		for _, d := range step.Deps {
			s.dependents[d] = append(s.dependents[d], i)
		}
		for _, a := range step.After {
			s.successors[a] = append(s.successors[a], i)
		}
		if s.remaining[i] == 0 {
			s.ready = append(s.ready, i)
		}
	}
	return s
}

func (s *state) release(i int) {
	s.remaining[i]--
	if s.remaining[i] == 0 {
		pos, _ := slices.BinarySearch(s.ready, i)
		s.ready = slices.Insert(s.ready, pos, i)
	}
}

func (s *state) popReady() (int, bool) {
	if len(s.ready) == 0 {
		return 0, false
	}
	i := s.ready[0]
	s.ready = s.ready[1:]
	return i, true
}
