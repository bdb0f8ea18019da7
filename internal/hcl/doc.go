// Package hcl implements the HCL front end for build definitions. It
// parses the root build file and everything it includes, evaluates
// variable blocks, imports external YAML variable files, and
// translates the result into the format-agnostic config model.
//
// Engine-level ${VAR} references inside command and path strings are
// written as $${VAR} in HCL source, so they survive HCL's own template
// evaluation as literals and reach the engine's resolver intact.
package hcl
