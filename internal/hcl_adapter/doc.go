// Package hcl_adapter implements config.Loader for HCL task files.
//
// Decoding happens in two passes over the same body: `variable` blocks are
// decoded and evaluated first, then the `default` attribute and `target`
// blocks are decoded against an evaluation context exposing `var.*`,
// `env.*`, and a small set of string functions.
package hcl_adapter
