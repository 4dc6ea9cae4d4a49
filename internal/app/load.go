package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/vk/taskgrid/internal/config"
	"github.com/vk/taskgrid/internal/ctxlog"
	"github.com/vk/taskgrid/internal/defaults"
	"github.com/vk/taskgrid/internal/hcl_adapter"
	"github.com/vk/taskgrid/internal/yaml_adapter"
)

// TaskFileNames are searched, in order, when no task file is given.
var TaskFileNames = []string{"Taskfile.hcl", "taskgrid.hcl", "taskgrid.yaml", "taskgrid.yml"}

// loaderFor picks a loader by file extension.
func loaderFor(filename string) (config.Loader, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".hcl":
		return hcl_adapter.NewLoader(), nil
	case ".yaml", ".yml":
		return yaml_adapter.NewLoader(), nil
	default:
		return nil, fmt.Errorf("unsupported task file extension for %s: want .hcl, .yaml or .yml", filename)
	}
}

// resolveSource finds the task file to load. An explicit TaskFile is relative
// to Dir; otherwise TaskFileNames are tried in Dir, and the built-in table is
// used when none exists.
func (a *App) resolveSource(ctx context.Context) (config.Source, error) {
	logger := ctxlog.FromContext(ctx)

	path := a.config.TaskFile
	if path != "" && !filepath.IsAbs(path) {
		path = filepath.Join(a.config.Dir, path)
	}
	if path == "" {
		for _, name := range TaskFileNames {
			candidate := filepath.Join(a.config.Dir, name)
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			} else if !errors.Is(err, fs.ErrNotExist) {
				return config.Source{}, fmt.Errorf("failed to stat %s: %w", candidate, err)
			}
		}
	}
	if path == "" {
		logger.Debug("No task file found, using the built-in table.", "dir", a.config.Dir)
		return defaults.Source(a.config.Vars), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return config.Source{}, fmt.Errorf("failed to read task file %s: %w", path, err)
	}
	logger.Debug("Task file found.", "path", path)
	return config.Source{Filename: path, Data: data, Vars: a.config.Vars}, nil
}

// loadModel reads, decodes, finalizes and validates the task file.
func (a *App) loadModel(ctx context.Context) (*config.Model, error) {
	src, err := a.resolveSource(ctx)
	if err != nil {
		return nil, err
	}
	loader, err := loaderFor(src.Filename)
	if err != nil {
		return nil, err
	}
	model, err := loader.Load(ctx, src)
	if err != nil {
		return nil, err
	}
	if err := model.Finalize(); err != nil {
		return nil, fmt.Errorf("invalid task file %s: %w", src.Filename, err)
	}
	if err := a.registry.Validate(model); err != nil {
		return nil, fmt.Errorf("invalid task file %s: %w", src.Filename, err)
	}
	ctxlog.FromContext(ctx).Debug("Task file loaded.", "source", model.Source, "targets", len(model.Targets))
	return model, nil
}
