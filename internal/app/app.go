package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/vk/taskgrid/internal/config"
	"github.com/vk/taskgrid/internal/ctxlog"
	"github.com/vk/taskgrid/internal/process"
	"github.com/vk/taskgrid/internal/registry"
	"github.com/vk/taskgrid/internal/report"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	errW     io.Writer
	logger   *slog.Logger
	config   *Config
	registry *registry.Registry
	runner   process.Runner
	sinks    []report.Sink

	mu    sync.Mutex
	model *config.Model
}

// Option customizes an App.
type Option func(*App)

// WithRunner replaces the command runner. Tests use it to record commands
// instead of running them.
func WithRunner(r process.Runner) Option {
	return func(a *App) { a.runner = r }
}

// WithSink adds a report sink next to the log sink.
func WithSink(s report.Sink) Option {
	return func(a *App) { a.sinks = append(a.sinks, s) }
}

// WithModules replaces the builtin modules.
func WithModules(modules ...registry.Module) Option {
	return func(a *App) { a.registry = registry.New(modules...) }
}

// NewApp is the constructor for the main application. Target output goes to
// outW and logs to errW. It loads and validates the task file, so a returned
// App is ready to run.
func NewApp(outW, errW io.Writer, cfg *Config, opts ...Option) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, errW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	a := &App{
		outW:   outW,
		errW:   errW,
		logger: logger,
		config: cfg,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.registry == nil {
		a.registry = registry.New(coreModules...)
	}
	logger.Debug("Builtin modules registered.", "builtins", a.registry.Names())

	if a.runner == nil {
		if cfg.DryRun {
			a.runner = &process.DryRunner{Out: outW}
		} else {
			a.runner = process.NewExecRunner(outW, errW)
		}
	}

	model, err := a.loadModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	a.model = model
	logger.Debug("Configuration loaded and translated into unified model.", "source", model.Source)

	return a, nil
}

// Model returns the currently loaded task model.
func (a *App) Model() *config.Model {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.model
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// reload re-reads the task file. On failure the previous model is kept.
func (a *App) reload(ctx context.Context) error {
	model, err := a.loadModel(ctx)
	if err != nil {
		return err
	}
	a.mu.Lock()
	a.model = model
	a.mu.Unlock()
	return nil
}
