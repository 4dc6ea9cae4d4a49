// Package config defines the format-agnostic task model for the application,
// along with the Loader interface that format-specific adapters implement.
//
// The `config.Model` is the single source of truth for the `dag` and
// `executor` packages. Concrete loaders for HCL and YAML live in the
// `hcl_adapter` and `yaml_adapter` packages.
package config
