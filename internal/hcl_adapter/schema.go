package hcl_adapter

import "github.com/hashicorp/hcl/v2"

// variablesRoot is the first-pass schema; everything except variables is left
// in Remain.
type variablesRoot struct {
	Variables []*Variable `hcl:"variable,block"`
	Remain    hcl.Body    `hcl:",remain"`
}

// Variable is a `variable "<name>"` block.
type Variable struct {
	Name        string         `hcl:"name,label"`
	Description string         `hcl:"description,optional"`
	Default     hcl.Expression `hcl:"default,optional"`
}

// fileRoot is the second-pass schema.
type fileRoot struct {
	Default string    `hcl:"default,optional"`
	Targets []*Target `hcl:"target,block"`
	Remain  hcl.Body  `hcl:",remain"`
}

// Target is a `target "<name>"` block.
type Target struct {
	Name        string            `hcl:"name,label"`
	Description string            `hcl:"description,optional"`
	Command     hcl.Expression    `hcl:"command,optional"`
	Dir         string            `hcl:"dir,optional"`
	Env         map[string]string `hcl:"env,optional"`
	DependsOn   []string          `hcl:"depends_on,optional"`
	Parallel    bool              `hcl:"parallel,optional"`
	Builtin     string            `hcl:"builtin,optional"`
}
