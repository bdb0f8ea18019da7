package vars

import (
	"path/filepath"
	"strings"
	"sync"

	"github.com/vk/forge/internal/config"
)

// Built-in variable names, computed from the invocation context rather
// than declared in any file.
const (
	// BuildFileVar is the absolute path of the root build definition file.
	BuildFileVar = "BUILD_FILE"
	// BuildDirVar is the directory containing the root build definition file.
	BuildDirVar = "BUILD_DIR"
	// RootVar is the project root, derived by walking root_levels
	// directory levels up from BUILD_DIR.
	RootVar = "ROOT"
)

// Resolver resolves variable names to fully expanded string values.
// Lookup precedence, highest first: variables blocks, vars_file
// imports, built-ins, defaults blocks. Resolution is cached per run;
// a Resolver must not be reused across invocations.
type Resolver struct {
	vars     map[string]string
	fileVars map[string]string
	builtins map[string]string
	defaults map[string]string

	mu    sync.Mutex
	cache map[string]string
}

// NewResolver builds a Resolver over the model's variable layers and
// computes the built-in values from the model's build-file location.
func NewResolver(model *config.Model) *Resolver {
	buildDir := filepath.Dir(model.BuildFile)
	root := buildDir
	for i := 0; i < model.RootLevels; i++ {
		root = filepath.Dir(root)
	}

	return &Resolver{
		vars:     model.Vars,
		fileVars: model.FileVars,
		defaults: model.Defaults,
		builtins: map[string]string{
			BuildFileVar: model.BuildFile,
			BuildDirVar:  buildDir,
			RootVar:      root,
		},
		cache: make(map[string]string),
	}
}

// Resolve returns the fully expanded value of the named variable.
func (r *Resolver) Resolve(name string) (string, error) {
	return r.resolve(name, nil)
}

// Expand substitutes every ${NAME} reference in the template with its
// resolved value. "$$" escapes a literal dollar sign.
func (r *Resolver) Expand(template string) (string, error) {
	return r.expand(template, nil)
}

// ExpandAll expands each template in order, returning the results.
func (r *Resolver) ExpandAll(templates []string) ([]string, error) {
	out := make([]string, 0, len(templates))
	for _, t := range templates {
		s, err := r.Expand(t)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// resolve looks the name up across the scope's layers and expands its
// raw value. The visiting chain tracks the active resolution path so
// self-referential definitions fail instead of recursing forever.
func (r *Resolver) resolve(name string, visiting []string) (string, error) {
	r.mu.Lock()
	if v, ok := r.cache[name]; ok {
		r.mu.Unlock()
		return v, nil
	}
	r.mu.Unlock()

	for _, seen := range visiting {
		if seen == name {
			return "", &CyclicVariableError{Chain: append(visiting, name)}
		}
	}

	raw, ok := r.lookup(name)
	if !ok {
		return "", &UndefinedVariableError{Name: name}
	}

	value, err := r.expand(raw, append(visiting, name))
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	r.cache[name] = value
	r.mu.Unlock()
	return value, nil
}

// lookup finds the raw (unexpanded) definition for a name.
func (r *Resolver) lookup(name string) (string, bool) {
	if v, ok := r.vars[name]; ok {
		return v, true
	}
	if v, ok := r.fileVars[name]; ok {
		return v, true
	}
	if v, ok := r.builtins[name]; ok {
		return v, true
	}
	if v, ok := r.defaults[name]; ok {
		return v, true
	}
	return "", false
}

// expand walks the template and substitutes ${NAME} references.
func (r *Resolver) expand(template string, visiting []string) (string, error) {
	var b strings.Builder
	b.Grow(len(template))

	for i := 0; i < len(template); {
		c := template[i]
		if c != '$' {
			b.WriteByte(c)
			i++
			continue
		}
		// "$" at end of string is literal.
		if i+1 >= len(template) {
			b.WriteByte(c)
			break
		}
		switch template[i+1] {
		case '$':
			b.WriteByte('$')
			i += 2
		case '{':
			end := strings.IndexByte(template[i+2:], '}')
			if end < 0 {
				// Unterminated reference, keep it literal.
				b.WriteString(template[i:])
				i = len(template)
				continue
			}
			name := template[i+2 : i+2+end]
			value, err := r.resolve(name, visiting)
			if err != nil {
				return "", err
			}
			b.WriteString(value)
			i += 2 + end + 1
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String(), nil
}
