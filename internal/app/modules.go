package app

import (
	"github.com/vk/taskgrid/internal/registry"
	"github.com/vk/taskgrid/modules/env_vars"
	"github.com/vk/taskgrid/modules/help"
	"github.com/vk/taskgrid/modules/targets"
)

// coreModules is the definitive list of builtin modules compiled into the
// taskgrid binary.
var coreModules = []registry.Module{
	&help.Module{},
	&env_vars.Module{},
	&targets.Module{},
}
