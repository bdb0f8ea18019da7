package core_build

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/forge/internal/app"
	"github.com/vk/forge/internal/testutil"
)

const chainHCL = `
	target "A" {
		outputs  = ["$${BUILD_DIR}/out/A"]
		commands = [
			"mkdir -p $${BUILD_DIR}/out",
			"touch $${BUILD_DIR}/out/A",
		]
	}

	target "B" {
		outputs  = ["$${BUILD_DIR}/out/B"]
		prereqs  = ["A"]
		commands = ["touch $${BUILD_DIR}/out/B"]
	}
`

func mtime(t *testing.T, path string) time.Time {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err)
	return info.ModTime()
}

func TestChainBuildsRerunsAndPropagatesStaleness(t *testing.T) {
	dir := t.TempDir()
	outA := filepath.Join(dir, "out", "A")
	outB := filepath.Join(dir, "out", "B")

	// Fresh checkout: requesting B builds A first, then B.
	res := testutil.RunBuildInDir(t, dir, map[string]string{"build.hcl": chainHCL}, app.Config{Targets: []string{"B"}})
	require.NoError(t, res.Err)
	require.FileExists(t, outA)
	require.FileExists(t, outB)

	mtimeA, mtimeB := mtime(t, outA), mtime(t, outB)

	// Immediate re-run: everything up to date, nothing touched.
	res = testutil.RunBuildInDir(t, dir, nil, app.Config{Targets: []string{"B"}})
	require.NoError(t, res.Err)
	assert.Equal(t, mtimeA, mtime(t, outA))
	assert.Equal(t, mtimeB, mtime(t, outB))

	// A's output jumps forward: B rebuilds, A does not.
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(outA, future, future))

	res = testutil.RunBuildInDir(t, dir, nil, app.Config{Targets: []string{"B"}})
	require.NoError(t, res.Err)
	assert.Equal(t, future.Unix(), mtime(t, outA).Unix())
	assert.NotEqual(t, mtimeB, mtime(t, outB), "B must rebuild when A's output is newer")
}

func TestDefaultTargetIsBuilt(t *testing.T) {
	res := testutil.RunBuild(t, map[string]string{
		"build.hcl": `
			default_target = "second"

			target "first" {
				commands = ["touch $${BUILD_DIR}/first"]
			}

			target "second" {
				commands = ["touch $${BUILD_DIR}/second"]
			}
		`,
	}, app.Config{})
	require.NoError(t, res.Err)

	assert.FileExists(t, filepath.Join(res.Dir, "second"))
	assert.NoFileExists(t, filepath.Join(res.Dir, "first"))
}

func TestPhonyFansOut(t *testing.T) {
	res := testutil.RunBuild(t, map[string]string{
		"build.hcl": `
			target "addrmap" {
				outputs  = ["$${BUILD_DIR}/addrmap.sv"]
				commands = ["touch $${BUILD_DIR}/addrmap.sv"]
			}

			target "regs" {
				outputs  = ["$${BUILD_DIR}/regs.sv"]
				commands = ["touch $${BUILD_DIR}/regs.sv"]
			}

			phony "all" {
				prereqs = ["addrmap", "regs"]
			}
		`,
	}, app.Config{Targets: []string{"all"}, Workers: 4})
	require.NoError(t, res.Err)

	assert.FileExists(t, filepath.Join(res.Dir, "addrmap.sv"))
	assert.FileExists(t, filepath.Join(res.Dir, "regs.sv"))
}

func TestSentinelTargetRunsOnce(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"build.hcl": `
			target "deps" {
				sentinel = "$${BUILD_DIR}/.stamps/deps"
				commands = ["echo installing >> $${BUILD_DIR}/install.log"]
			}
		`,
	}

	res := testutil.RunBuildInDir(t, dir, files, app.Config{})
	require.NoError(t, res.Err)
	require.FileExists(t, filepath.Join(dir, ".stamps", "deps"))

	res = testutil.RunBuildInDir(t, dir, nil, app.Config{})
	require.NoError(t, res.Err)

	log, err := os.ReadFile(filepath.Join(dir, "install.log"))
	require.NoError(t, err)
	assert.Equal(t, "installing\n", string(log), "the action must not run a second time")
}
