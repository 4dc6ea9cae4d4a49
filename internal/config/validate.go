package config

import (
	"errors"
	"fmt"
)

// Finalize fills in defaults and validates the model. When no help target is
// declared, a builtin one is appended; an empty default goal becomes help.
func (m *Model) Finalize() error {
	if _, ok := m.Lookup(HelpTarget); !ok {
		m.Targets = append(m.Targets, &Target{
			Name:        HelpTarget,
			Description: "Show this help.",
			Builtin:     HelpTarget,
		})
	}
	if m.DefaultTarget == "" {
		m.DefaultTarget = HelpTarget
	}
	return m.Validate()
}

// Validate checks the structural integrity of the model. All problems are
// reported together.
func (m *Model) Validate() error {
	var errs []error
	seen := make(map[string]struct{}, len(m.Targets))

	for _, t := range m.Targets {
		if t.Name == "" {
			errs = append(errs, errors.New("target with empty name"))
			continue
		}
		if _, dup := seen[t.Name]; dup {
			errs = append(errs, fmt.Errorf("target %q is declared more than once", t.Name))
		}
		seen[t.Name] = struct{}{}

		if len(t.Command) > 0 && t.Builtin != "" {
			errs = append(errs, fmt.Errorf("target %q sets both command and builtin", t.Name))
		}
		if t.Kind() == CompositeKind && len(t.DependsOn) == 0 {
			errs = append(errs, fmt.Errorf("target %q has no command, builtin or depends_on", t.Name))
		}
	}

	for _, t := range m.Targets {
		for _, dep := range t.DependsOn {
			if _, ok := seen[dep]; !ok {
				errs = append(errs, fmt.Errorf("target %q depends on unknown target %q", t.Name, dep))
			}
		}
	}

	if m.DefaultTarget != "" {
		if _, ok := seen[m.DefaultTarget]; !ok {
			errs = append(errs, fmt.Errorf("default target %q is not declared", m.DefaultTarget))
		}
	}

	return errors.Join(errs...)
}
