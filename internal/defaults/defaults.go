// Package defaults carries the task table used when no task file is found.
package defaults

import (
	_ "embed"

	"github.com/vk/taskgrid/internal/config"
)

// Filename is reported as the source of the built-in table.
const Filename = "<builtin>/Taskfile.hcl"

//go:embed Taskfile.hcl
var taskfile []byte

// Source returns the built-in task file with the given overrides.
func Source(vars map[string]string) config.Source {
	return config.Source{Filename: Filename, Data: taskfile, Vars: vars}
}
