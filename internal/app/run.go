package app

import (
	"context"
	"time"

	"github.com/vk/taskgrid/internal/ctxlog"
	"github.com/vk/taskgrid/internal/dag"
	"github.com/vk/taskgrid/internal/executor"
	"github.com/vk/taskgrid/internal/report"
	"github.com/vk/taskgrid/internal/watch"
	"golang.org/x/sync/errgroup"
)

// reportConnectTimeout bounds how long startup waits for the collector.
const reportConnectTimeout = 5 * time.Second

// Run executes the configured goals. In watch mode it runs them once and
// again after every change, until ctx is done. The health check server, when
// enabled, lives for the duration of Run.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	sink := a.openSinks(ctx)
	defer func() {
		if err := sink.Close(); err != nil {
			a.logger.Warn("Failed to close report sinks.", "error", err)
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	runCtx, stop := context.WithCancel(gctx)
	defer stop()

	if a.config.HealthcheckPort > 0 {
		g.Go(func() error {
			return a.serveHealthcheck(runCtx, a.config.HealthcheckPort, nil)
		})
	}
	g.Go(func() error {
		defer stop()
		if a.config.Watch {
			return a.watchLoop(runCtx, sink)
		}
		_, err := a.RunOnce(runCtx, sink)
		return err
	})

	err := g.Wait()
	a.logger.Debug("App.Run method finished.")
	return err
}

// RunOnce plans and executes the goals against the current model, reporting
// to sink.
func (a *App) RunOnce(ctx context.Context, sink report.Sink) (*executor.Summary, error) {
	model := a.Model()
	runID := report.NewRunID()
	ctx, logger := ctxlog.With(ctx, "run_id", runID)

	plan, err := dag.BuildPlan(ctx, model, a.config.Goals)
	if err != nil {
		return nil, err
	}
	logger.Debug("Plan built.", "steps", plan.Names())

	obs := report.NewObserver(runID, sink)
	obs.RunStarted(ctx, plan.Goals)

	dir := a.config.Dir
	if dir == "." {
		dir = ""
	}
	exec := executor.New(plan, model, a.runner, a.registry, a.outW, executor.Options{
		Jobs:      a.config.Jobs,
		KeepGoing: a.config.KeepGoing,
		Dir:       dir,
		Observer:  obs,
	})
	summary, err := exec.Run(ctx)
	obs.RunFinished(ctx, summary.Duration, err)
	return summary, err
}

// watchLoop runs the goals now and after each change. Run failures are
// logged; only watcher setup errors end the loop early.
func (a *App) watchLoop(ctx context.Context, sink report.Sink) error {
	logger := ctxlog.FromContext(ctx)

	w, err := watch.New(a.config.WatchPaths, watch.Options{})
	if err != nil {
		return err
	}
	logger.Info("👀 Watching for changes.", "paths", a.config.WatchPaths)

	rerun := func(ctx context.Context) {
		if _, err := a.RunOnce(ctx, sink); err != nil && ctx.Err() == nil {
			logger.Error("Run failed, waiting for changes.", "error", err)
		}
	}

	rerun(ctx)
	return w.Run(ctx, func(ctx context.Context, paths []string) {
		logger.Info("Change detected, rerunning.", "paths", paths)
		if err := a.reload(ctx); err != nil {
			logger.Error("Failed to reload task file, keeping the previous one.", "error", err)
		}
		rerun(ctx)
	})
}

// openSinks assembles the report sinks for this run. The log sink is always
// present. A collector that cannot be reached is logged and skipped.
func (a *App) openSinks(ctx context.Context) report.Multi {
	sinks := report.Multi{report.LogSink{}}
	if a.config.ReportURL != "" {
		s, err := report.DialSocketIO(ctx, report.SocketIOOptions{
			URL:            a.config.ReportURL,
			ConnectTimeout: reportConnectTimeout,
		})
		if err != nil {
			a.logger.Warn("Run events will not be reported.", "url", a.config.ReportURL, "error", err)
		} else {
			sinks = append(sinks, s)
		}
	}
	return append(sinks, a.sinks...)
}
