package hcl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"gopkg.in/yaml.v3"

	"github.com/vk/forge/internal/config"
	"github.com/vk/forge/internal/ctxlog"
)

// Loader is the HCL-specific implementation of config.Loader.
type Loader struct{}

// NewLoader creates a new HCL build-definition loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses the root build file at path, follows include blocks
// depth-first, and merges everything into a single config model.
// Included files contribute in include order, before the including
// file's own blocks, so the root file has the last word on variables.
func (l *Loader) Load(ctx context.Context, path string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving build file path %s: %w", path, err)
	}

	model := &config.Model{
		Vars:      make(map[string]string),
		FileVars:  make(map[string]string),
		Defaults:  make(map[string]string),
		BuildFile: absPath,
	}

	st := &loadState{
		parser: hclparse.NewParser(),
		seen:   make(map[string]struct{}),
	}
	if err := l.loadFile(ctx, st, absPath, true, model); err != nil {
		return nil, err
	}

	logger.Debug("Build definition loaded.",
		"root", absPath,
		"files", len(st.seen),
		"targets", len(model.Targets),
		"vars", len(model.Vars),
	)
	return model, nil
}

// loadState carries the shared parser and the set of files already
// loaded, guarding against include cycles and duplicate includes.
type loadState struct {
	parser *hclparse.Parser
	seen   map[string]struct{}
}

func (l *Loader) loadFile(ctx context.Context, st *loadState, absPath string, isRoot bool, model *config.Model) error {
	logger := ctxlog.FromContext(ctx)

	if _, ok := st.seen[absPath]; ok {
		logger.Debug("Skipping already-loaded definition file.", "path", absPath)
		return nil
	}
	st.seen[absPath] = struct{}{}
	model.Files = append(model.Files, absPath)

	hclFile, diags := st.parser.ParseHCLFile(absPath)
	if diags.HasErrors() {
		return fmt.Errorf("parsing build file %s: %w", absPath, diags)
	}

	var root fileSchema
	if diags := gohcl.DecodeBody(hclFile.Body, nil, &root); diags.HasErrors() {
		return fmt.Errorf("decoding build file %s: %w", absPath, diags)
	}

	// Includes merge first so the including file can override them.
	dir := filepath.Dir(absPath)
	for _, inc := range root.Includes {
		incPath := inc.Path
		if !filepath.IsAbs(incPath) {
			incPath = filepath.Join(dir, incPath)
		}
		logger.Debug("Processing include.", "from", absPath, "path", incPath)
		if err := l.loadFile(ctx, st, incPath, false, model); err != nil {
			return err
		}
	}

	if isRoot {
		model.DefaultTarget = root.DefaultTarget
		model.RootLevels = root.RootLevels
	} else if root.DefaultTarget != "" || root.RootLevels != 0 {
		logger.Warn("default_target/root_levels are only honored in the root build file, ignoring.", "path", absPath)
	}

	for _, vf := range root.VarsFiles {
		if err := l.loadVarsFile(ctx, dir, vf, model); err != nil {
			return err
		}
	}
	for _, block := range root.Variables {
		if err := decodeAssignments(block, absPath, model.Vars); err != nil {
			return err
		}
	}
	for _, block := range root.Defaults {
		if err := decodeAssignments(block, absPath, model.Defaults); err != nil {
			return err
		}
	}

	for _, tb := range root.Targets {
		t, err := translateTarget(tb)
		if err != nil {
			return fmt.Errorf("in %s: %w", absPath, err)
		}
		model.Targets = append(model.Targets, t)
	}
	for _, pb := range root.Phonies {
		t, err := translatePhony(pb)
		if err != nil {
			return fmt.Errorf("in %s: %w", absPath, err)
		}
		model.Targets = append(model.Targets, t)
	}

	return nil
}

// loadVarsFile reads a flat YAML mapping and merges it into the
// model's file-vars layer. Scalar values are stringified; nested
// structures are rejected, the variable scope is flat.
func (l *Loader) loadVarsFile(ctx context.Context, dir string, vf *varsFileBlock, model *config.Model) error {
	logger := ctxlog.FromContext(ctx)
	dst := model.FileVars

	path := vf.Path
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && vf.Optional {
			logger.Debug("Optional vars file missing, skipping.", "path", path)
			return nil
		}
		return fmt.Errorf("reading vars file %s: %w", path, err)
	}
	model.Files = append(model.Files, path)

	raw := make(map[string]any)
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parsing vars file %s: %w", path, err)
	}

	for name, value := range raw {
		switch v := value.(type) {
		case string:
			dst[name] = v
		case int, int64, float64, bool:
			dst[name] = fmt.Sprintf("%v", v)
		default:
			return fmt.Errorf("vars file %s: variable '%s' must be a scalar, got %T", path, name, value)
		}
	}
	logger.Debug("Vars file imported.", "path", path, "count", len(raw))
	return nil
}
