package config

import "context"

// Source is a single task file handed to a Loader.
type Source struct {
	// Filename is used for diagnostics and to pick a loader.
	Filename string
	Data     []byte
	// Vars are command-line variable overrides (`--var k=v`, `K=V`).
	Vars map[string]string
}

// Loader is the interface for a format-specific task file loader.
type Loader interface {
	// Load parses and evaluates a task file into the format-agnostic model.
	// The returned model is not yet finalized.
	Load(ctx context.Context, src Source) (*Model, error)
}
