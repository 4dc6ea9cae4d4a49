package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/spf13/pflag"
	"github.com/vk/taskgrid/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// assignment matches a NAME=value positional argument.
var assignment = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*=`)

const usageHeader = `
taskgrid - A declarative task runner.

Usage:
  taskgrid [options] [TARGET...] [NAME=value...]

Arguments:
  TARGET
    A target to run. Without targets the task file's default goal runs.
  NAME=value
    Overrides the variable NAME.

Options:
`

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := pflag.NewFlagSet("taskgrid", pflag.ContinueOnError)
	flagSet.SetOutput(output)
	flagSet.SortFlags = false

	flagSet.Usage = func() {
		fmt.Fprint(output, usageHeader)
		fmt.Fprint(output, flagSet.FlagUsages())
	}

	fileFlag := flagSet.StringP("file", "f", "", "Task file to load. Defaults to the first of "+strings.Join(app.TaskFileNames, ", ")+" found.")
	dirFlag := flagSet.StringP("directory", "C", ".", "Change to this directory before doing anything.")
	jobsFlag := flagSet.IntP("jobs", "j", 1, "Number of targets that may run at once.")
	keepGoingFlag := flagSet.BoolP("keep-going", "k", false, "Keep going with unaffected targets after a failure.")
	dryRunFlag := flagSet.BoolP("dry-run", "n", false, "Print the commands that would run without running them.")
	watchFlag := flagSet.BoolP("watch", "w", false, "Rerun the targets whenever a watched file changes.")
	watchPathsFlag := flagSet.StringArray("watch-path", nil, "Path to watch in watch mode, relative to --directory. Repeatable. Defaults to the working directory.")
	varsFlag := flagSet.StringArray("var", nil, "Set a variable, as NAME=value. Repeatable.")
	reportURLFlag := flagSet.String("report-url", "", "socket.io server that receives run events.")
	healthPortFlag := flagSet.Int("healthcheck-port", 0, "Port for the HTTP health check server. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	vars := make(map[string]string)
	for _, kv := range *varsFlag {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !assignment.MatchString(kv) {
			return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("invalid --var %q: want NAME=value", kv)}
		}
		vars[name] = value
	}

	var goals []string
	for _, arg := range flagSet.Args() {
		if assignment.MatchString(arg) {
			name, value, _ := strings.Cut(arg, "=")
			vars[name] = value
			continue
		}
		goals = append(goals, arg)
	}
	slog.Debug("Goals determined.", "goals", goals, "vars", len(vars))

	config, err := app.NewConfig(app.Config{
		TaskFile:        *fileFlag,
		Dir:             *dirFlag,
		Goals:           goals,
		Vars:            vars,
		Jobs:            *jobsFlag,
		KeepGoing:       *keepGoingFlag,
		DryRun:          *dryRunFlag,
		Watch:           *watchFlag,
		WatchPaths:      *watchPathsFlag,
		ReportURL:       *reportURLFlag,
		HealthcheckPort: *healthPortFlag,
		LogFormat:       strings.ToLower(*logFormatFlag),
		LogLevel:        strings.ToLower(*logLevelFlag),
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	if *jobsFlag < 1 {
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("jobs must be at least 1, got %d", *jobsFlag)}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
