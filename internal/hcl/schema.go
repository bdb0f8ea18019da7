package hcl

import "github.com/hashicorp/hcl/v2"

// fileSchema is the decode target for the top level of any build
// definition file.
type fileSchema struct {
	DefaultTarget string `hcl:"default_target,optional"`
	RootLevels    int    `hcl:"root_levels,optional"`

	Includes  []*includeBlock  `hcl:"include,block"`
	Variables []*varsBlock     `hcl:"variables,block"`
	Defaults  []*varsBlock     `hcl:"defaults,block"`
	VarsFiles []*varsFileBlock `hcl:"vars_file,block"`
	Targets   []*targetBlock   `hcl:"target,block"`
	Phonies   []*phonyBlock    `hcl:"phony,block"`
}

// includeBlock merges another definition file, resolved relative to
// the file declaring it. Each file is loaded at most once per run.
type includeBlock struct {
	Path string `hcl:"path,label"`
}

// varsBlock holds free-form NAME = value assignments. Used for both
// `variables` (unconditional) and `defaults` (default-if-absent).
type varsBlock struct {
	Body hcl.Body `hcl:",remain"`
}

// varsFileBlock imports a flat YAML mapping as variable definitions.
type varsFileBlock struct {
	Path     string `hcl:"path,label"`
	Optional bool   `hcl:"optional,optional"`
}

// targetBlock is a `target` block: a named unit of work.
type targetBlock struct {
	Name        string   `hcl:"name,label"`
	Description string   `hcl:"description,optional"`
	Outputs     []string `hcl:"outputs,optional"`
	Prereqs     []string `hcl:"prereqs,optional"`
	Commands    []string `hcl:"commands,optional"`
	Sentinel    string   `hcl:"sentinel,optional"`
	Always      bool     `hcl:"always,optional"`
	Timeout     string   `hcl:"timeout,optional"`
}

// phonyBlock is sugar for a target with no outputs that is always
// stale, e.g. `phony "all" { prereqs = [...] }`.
type phonyBlock struct {
	Name        string   `hcl:"name,label"`
	Description string   `hcl:"description,optional"`
	Prereqs     []string `hcl:"prereqs,optional"`
	Commands    []string `hcl:"commands,optional"`
	Timeout     string   `hcl:"timeout,optional"`
}
