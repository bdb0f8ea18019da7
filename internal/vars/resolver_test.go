package vars

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/forge/internal/config"
)

func newTestResolver(model *config.Model) *Resolver {
	if model.BuildFile == "" {
		model.BuildFile = "/work/project/hw/build.hcl"
	}
	return NewResolver(model)
}

func TestResolveLiteral(t *testing.T) {
	r := newTestResolver(&config.Model{
		Vars: map[string]string{"CC": "riscv64-unknown-elf-gcc"},
	})

	v, err := r.Resolve("CC")
	require.NoError(t, err)
	assert.Equal(t, "riscv64-unknown-elf-gcc", v)
}

func TestResolveRecursiveReference(t *testing.T) {
	r := newTestResolver(&config.Model{
		Vars: map[string]string{
			"PREFIX": "riscv64-unknown-elf",
			"CC":     "${PREFIX}-gcc",
			"CFLAGS": "-O2 -mabi=lp64",
			"CMD":    "${CC} ${CFLAGS}",
		},
	})

	v, err := r.Resolve("CMD")
	require.NoError(t, err)
	assert.Equal(t, "riscv64-unknown-elf-gcc -O2 -mabi=lp64", v)
}

func TestResolveUndefined(t *testing.T) {
	r := newTestResolver(&config.Model{})

	_, err := r.Resolve("NOPE")
	var undefErr *UndefinedVariableError
	require.ErrorAs(t, err, &undefErr)
	assert.Equal(t, "NOPE", undefErr.Name)
}

func TestResolveCycle(t *testing.T) {
	r := newTestResolver(&config.Model{
		Vars: map[string]string{
			"A": "${B}",
			"B": "${C}",
			"C": "${A}",
		},
	})

	_, err := r.Resolve("A")
	var cycleErr *CyclicVariableError
	require.ErrorAs(t, err, &cycleErr)
	assert.Equal(t, []string{"A", "B", "C", "A"}, cycleErr.Chain)
}

func TestResolveSelfReference(t *testing.T) {
	r := newTestResolver(&config.Model{
		Vars: map[string]string{"A": "${A}/sub"},
	})

	_, err := r.Resolve("A")
	var cycleErr *CyclicVariableError
	require.ErrorAs(t, err, &cycleErr)
}

func TestBuiltins(t *testing.T) {
	r := NewResolver(&config.Model{
		BuildFile:  "/work/project/hw/build.hcl",
		RootLevels: 1,
	})

	for name, want := range map[string]string{
		BuildFileVar: "/work/project/hw/build.hcl",
		BuildDirVar:  "/work/project/hw",
		RootVar:      "/work/project",
	} {
		v, err := r.Resolve(name)
		require.NoError(t, err)
		assert.Equal(t, filepath.FromSlash(want), v, name)
	}
}

func TestLookupPrecedence(t *testing.T) {
	r := newTestResolver(&config.Model{
		Vars:     map[string]string{"A": "from-vars"},
		FileVars: map[string]string{"A": "from-file", "B": "from-file"},
		Defaults: map[string]string{"A": "from-default", "B": "from-default", "C": "from-default"},
	})

	for name, want := range map[string]string{
		"A": "from-vars",
		"B": "from-file",
		"C": "from-default",
	} {
		v, err := r.Resolve(name)
		require.NoError(t, err)
		assert.Equal(t, want, v, name)
	}
}

// A resolved value must stay fixed for the rest of the run, even if
// the backing definition changes underneath the resolver.
func TestResolutionIsCachedPerRun(t *testing.T) {
	defs := map[string]string{"TOOL": "verilator"}
	r := newTestResolver(&config.Model{Vars: defs})

	v, err := r.Resolve("TOOL")
	require.NoError(t, err)
	assert.Equal(t, "verilator", v)

	defs["TOOL"] = "vcs"

	v, err = r.Resolve("TOOL")
	require.NoError(t, err)
	assert.Equal(t, "verilator", v)
}

func TestExpand(t *testing.T) {
	r := newTestResolver(&config.Model{
		Vars: map[string]string{"OUT": "gen", "NAME": "plic"},
	})

	tests := []struct {
		template string
		want     string
	}{
		{"${OUT}/${NAME}.sv", "gen/plic.sv"},
		{"no refs here", "no refs here"},
		{"cost is $$5", "cost is $5"},
		{"trailing $", "trailing $"},
		{"${OUT", "${OUT"}, // unterminated stays literal
		{"$OUT", "$OUT"},   // bare dollar is not a reference
	}
	for _, tt := range tests {
		got, err := r.Expand(tt.template)
		require.NoError(t, err, tt.template)
		assert.Equal(t, tt.want, got, tt.template)
	}
}

func TestExpandAll(t *testing.T) {
	r := newTestResolver(&config.Model{
		Vars: map[string]string{"GEN": "occamygen.py"},
	})

	got, err := r.ExpandAll([]string{"${GEN} --cfg a", "${GEN} --cfg b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"occamygen.py --cfg a", "occamygen.py --cfg b"}, got)

	_, err = r.ExpandAll([]string{"${MISSING}"})
	var undefErr *UndefinedVariableError
	assert.ErrorAs(t, err, &undefErr)
}
