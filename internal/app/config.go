package app

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	// TaskFile is an explicit task file. When empty, Dir is searched.
	TaskFile string
	// Dir is the working directory for commands and task file discovery.
	Dir   string
	Goals []string
	// Vars are variable overrides from --var and NAME=value arguments.
	Vars map[string]string

	Jobs       int
	KeepGoing  bool
	DryRun     bool
	Watch      bool
	WatchPaths []string

	// ReportURL is a socket.io collector that receives run events.
	ReportURL       string
	HealthcheckPort int
	LogFormat       string
	LogLevel        string
}

var (
	logFormats = []string{"text", "json"}
	logLevels  = []string{"debug", "info", "warn", "error"}
)

// NewConfig validates cfg and fills in defaults.
func NewConfig(cfg Config) (*Config, error) {
	var errs []error

	if cfg.Jobs == 0 {
		cfg.Jobs = 1
	}
	if cfg.Jobs < 0 {
		errs = append(errs, fmt.Errorf("jobs must be at least 1, got %d", cfg.Jobs))
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	if !slices.Contains(logFormats, cfg.LogFormat) {
		errs = append(errs, errors.New("invalid log-format: must be 'text' or 'json'"))
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if !slices.Contains(logLevels, cfg.LogLevel) {
		errs = append(errs, errors.New("invalid log-level: must be 'debug', 'info', 'warn', or 'error'"))
	}
	if cfg.HealthcheckPort < 0 || cfg.HealthcheckPort > 65535 {
		errs = append(errs, fmt.Errorf("healthcheck-port out of range: %d", cfg.HealthcheckPort))
	}
	if cfg.Dir == "" {
		cfg.Dir = "."
	}
	if cfg.Watch && len(cfg.WatchPaths) == 0 {
		cfg.WatchPaths = []string{cfg.Dir}
	} else if len(cfg.WatchPaths) > 0 {
		// Watch paths are relative to Dir, like the task file.
		paths := make([]string, len(cfg.WatchPaths))
		for i, p := range cfg.WatchPaths {
			if filepath.IsAbs(p) {
				paths[i] = p
			} else {
				paths[i] = filepath.Join(cfg.Dir, p)
			}
		}
		cfg.WatchPaths = paths
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return &cfg, nil
}
