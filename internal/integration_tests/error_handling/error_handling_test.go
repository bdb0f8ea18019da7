package error_handling

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/forge/internal/app"
	"github.com/vk/forge/internal/dag"
	"github.com/vk/forge/internal/executor"
	"github.com/vk/forge/internal/testutil"
	"github.com/vk/forge/internal/vars"
)

func TestFailingTargetTriggersFailFast(t *testing.T) {
	res := testutil.RunBuild(t, map[string]string{
		"build.hcl": `
			target "broken" {
				commands = [
					"echo elaboration failed >&2; exit 1",
					"touch $${BUILD_DIR}/after-failure",
				]
			}

			target "downstream" {
				prereqs  = ["broken"]
				commands = ["touch $${BUILD_DIR}/downstream"]
			}
		`,
	}, app.Config{Targets: []string{"downstream"}})
	require.Error(t, res.Err)

	var procErr *executor.ProcessError
	require.ErrorAs(t, res.Err, &procErr)
	assert.Equal(t, "broken", procErr.Target)
	assert.Equal(t, 1, procErr.ExitCode)
	assert.Contains(t, res.Err.Error(), "elaboration failed")

	assert.NoFileExists(t, filepath.Join(res.Dir, "after-failure"))
	assert.NoFileExists(t, filepath.Join(res.Dir, "downstream"))
}

func TestDependencyCycleIsRejectedBeforeExecution(t *testing.T) {
	res := testutil.RunBuild(t, map[string]string{
		"build.hcl": `
			target "a" {
				prereqs  = ["b"]
				commands = ["touch $${BUILD_DIR}/a"]
			}

			target "b" {
				prereqs  = ["a"]
				commands = ["touch $${BUILD_DIR}/b"]
			}
		`,
	}, app.Config{Targets: []string{"a"}})
	require.Error(t, res.Err)

	var defErr *app.DefinitionError
	require.ErrorAs(t, res.Err, &defErr)
	var cycleErr *dag.CycleError
	require.ErrorAs(t, res.Err, &cycleErr)
	assert.Contains(t, cycleErr.Path, "a")

	// Nothing may have executed.
	assert.NoFileExists(t, filepath.Join(res.Dir, "a"))
	assert.NoFileExists(t, filepath.Join(res.Dir, "b"))
}

func TestUnknownRequestedTarget(t *testing.T) {
	res := testutil.RunBuild(t, map[string]string{
		"build.hcl": `target "a" { commands = ["true"] }`,
	}, app.Config{Targets: []string{"bootrom"}})
	require.Error(t, res.Err)

	var defErr *app.DefinitionError
	require.ErrorAs(t, res.Err, &defErr)
	var unknownErr *dag.UnknownTargetError
	require.ErrorAs(t, res.Err, &unknownErr)
	assert.Equal(t, "bootrom", unknownErr.Name)
}

func TestUndefinedVariableFailsTheRun(t *testing.T) {
	res := testutil.RunBuild(t, map[string]string{
		"build.hcl": `
			target "gen" {
				commands = ["$${UNDEFINED_TOOL} --run"]
			}
		`,
	}, app.Config{})
	require.Error(t, res.Err)

	var defErr *app.DefinitionError
	require.ErrorAs(t, res.Err, &defErr)
	var undefErr *vars.UndefinedVariableError
	require.ErrorAs(t, res.Err, &undefErr)
	assert.Equal(t, "UNDEFINED_TOOL", undefErr.Name)
}

func TestCyclicVariableFailsTheRun(t *testing.T) {
	res := testutil.RunBuild(t, map[string]string{
		"build.hcl": `
			variables {
				A = "$${B}"
				B = "$${A}"
			}

			target "gen" {
				outputs  = ["$${A}/out"]
				commands = ["true"]
			}
		`,
	}, app.Config{})
	require.Error(t, res.Err)

	var defErr *app.DefinitionError
	require.ErrorAs(t, res.Err, &defErr)
	var cycleErr *vars.CyclicVariableError
	require.ErrorAs(t, res.Err, &cycleErr)
}

func TestTimeoutFailsTheRun(t *testing.T) {
	start := time.Now()
	res := testutil.RunBuild(t, map[string]string{
		"build.hcl": `
			target "hung-simulation" {
				commands = ["sleep 10"]
				timeout  = "100ms"
			}
		`,
	}, app.Config{})
	require.Error(t, res.Err)
	assert.Less(t, time.Since(start), 5*time.Second)

	var procErr *executor.ProcessError
	require.ErrorAs(t, res.Err, &procErr)
	assert.True(t, procErr.Timeout)
}
