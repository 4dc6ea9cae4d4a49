package config

// HelpTarget is the name of the target that prints usage text. It is also
// the default goal when a task file does not name one.
const HelpTarget = "help"

// Model is the unified, format-agnostic representation of a task file.
type Model struct {
	// Source is the filename the model was loaded from.
	Source        string
	DefaultTarget string
	// Variables holds the evaluated variable values, overrides included.
	Variables map[string]string
	// Targets keeps declaration order, which is also the order used by help.
	Targets []*Target
}

// Target is the format-agnostic representation of a `target` block.
//
// A target has exactly one kind: a command target (Command set), a builtin
// target (Builtin set), or a composite target (only DependsOn set).
type Target struct {
	Name        string
	Description string
	Command     []string
	Dir         string
	Env         map[string]string
	DependsOn   []string
	// Parallel allows the prerequisites of a composite to run concurrently.
	// By default they run in declared order.
	Parallel bool
	Builtin  string
}

// Kind classifies a target by its action.
type Kind int

const (
	CompositeKind Kind = iota
	CommandKind
	BuiltinKind
)

func (k Kind) String() string {
	switch k {
	case CommandKind:
		return "command"
	case BuiltinKind:
		return "builtin"
	default:
		return "composite"
	}
}

// Kind reports what the target does when it runs.
func (t *Target) Kind() Kind {
	switch {
	case len(t.Command) > 0:
		return CommandKind
	case t.Builtin != "":
		return BuiltinKind
	default:
		return CompositeKind
	}
}

// Lookup returns the target with the given name.
func (m *Model) Lookup(name string) (*Target, bool) {
	for _, t := range m.Targets {
		if t.Name == name {
			return t, true
		}
	}
	return nil, false
}

// Names returns all target names in declaration order.
func (m *Model) Names() []string {
	names := make([]string, 0, len(m.Targets))
	for _, t := range m.Targets {
		names = append(names, t.Name)
	}
	return names
}
