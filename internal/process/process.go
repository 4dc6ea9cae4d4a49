// Package process invokes the external commands behind command targets.
package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/vk/taskgrid/internal/ctxlog"
)

// Command is a fully resolved external invocation.
type Command struct {
	Target string
	Argv   []string
	// Dir is the working directory; empty means the current one.
	Dir string
	// Env is appended to the inherited process environment.
	Env map[string]string
}

// String renders the command line the way a shell user would type it.
func (c Command) String() string {
	parts := make([]string, len(c.Argv))
	for i, a := range c.Argv {
		parts[i] = quote(a)
	}
	return strings.Join(parts, " ")
}

func quote(s string) string {
	if s == "" || strings.ContainsAny(s, " \t\"'\\$") {
		return fmt.Sprintf("%q", s)
	}
	return s
}

// Runner executes commands.
type Runner interface {
	Run(ctx context.Context, cmd Command) error
}

// ExitError reports a command that ran but exited non-zero.
type ExitError struct {
	Command string
	Code    int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("command %q exited with code %d", e.Command, e.Code)
}

// ExecRunner runs commands as child processes, streaming their output.
type ExecRunner struct {
	Stdout io.Writer
	Stderr io.Writer
	// WaitDelay bounds how long to wait for output after the context is
	// canceled and the process killed.
	WaitDelay time.Duration
}

// NewExecRunner streams child output to the given writers.
func NewExecRunner(stdout, stderr io.Writer) *ExecRunner {
	return &ExecRunner{Stdout: stdout, Stderr: stderr, WaitDelay: 5 * time.Second}
}

// Run starts the command and waits for it to exit.
func (r *ExecRunner) Run(ctx context.Context, c Command) error {
	if len(c.Argv) == 0 {
		return fmt.Errorf("target %q: empty command", c.Target)
	}
	logger := ctxlog.FromContext(ctx)

	cmd := exec.CommandContext(ctx, c.Argv[0], c.Argv[1:]...)
	cmd.Dir = c.Dir
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	cmd.Stdin = nil
	cmd.WaitDelay = r.WaitDelay
	if len(c.Env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range c.Env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
	}

	logger.Debug("Starting command.", "argv", c.Argv, "dir", c.Dir)
	err := cmd.Run()
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return fmt.Errorf("command %q interrupted: %w", c.String(), ctx.Err())
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ExitError{Command: c.String(), Code: exitErr.ExitCode()}
	}
	return fmt.Errorf("command %q failed to start: %w", c.String(), err)
}

// DryRunner prints commands instead of running them.
type DryRunner struct {
	Out io.Writer
}

// Run writes the command line, prefixed by its directory when set.
func (r *DryRunner) Run(_ context.Context, c Command) error {
	if c.Dir != "" {
		_, err := fmt.Fprintf(r.Out, "(cd %s && %s)\n", quote(c.Dir), c)
		return err
	}
	_, err := fmt.Fprintln(r.Out, c.String())
	return err
}
