package cli_behavior

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/forge/internal/app"
	"github.com/vk/forge/internal/hcl"
	"github.com/vk/forge/internal/testutil"
)

func TestDryRunPrintsExpandedCommands(t *testing.T) {
	res := testutil.RunBuild(t, map[string]string{
		"build.hcl": `
			variables {
				CC = "riscv64-unknown-elf-gcc"
			}

			target "bootrom" {
				outputs  = ["$${BUILD_DIR}/bootrom.elf"]
				commands = ["$${CC} -o $${BUILD_DIR}/bootrom.elf boot.S"]
			}
		`,
	}, app.Config{DryRun: true})
	require.NoError(t, res.Err)

	assert.Contains(t, res.Stdout, "riscv64-unknown-elf-gcc -o "+filepath.Join(res.Dir, "bootrom.elf")+" boot.S")
	assert.NoFileExists(t, filepath.Join(res.Dir, "bootrom.elf"), "dry run must not execute anything")
}

func TestDryRunOmitsUpToDateTargets(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"build.hcl": `
			target "gen" {
				outputs  = ["$${BUILD_DIR}/gen.out"]
				commands = ["echo generated > $${BUILD_DIR}/gen.out"]
			}
		`,
	}

	res := testutil.RunBuildInDir(t, dir, files, app.Config{})
	require.NoError(t, res.Err)

	res = testutil.RunBuildInDir(t, dir, nil, app.Config{DryRun: true})
	require.NoError(t, res.Err)
	assert.Empty(t, res.Stdout, "up-to-date targets print nothing in a dry run")
}

func TestVerboseEchoesCommandsToStdout(t *testing.T) {
	res := testutil.RunBuild(t, map[string]string{
		"build.hcl": `target "hello" { commands = ["echo hello"] }`,
	}, app.Config{Verbose: true})
	require.NoError(t, res.Err)

	assert.Contains(t, res.Stdout, "echo hello\n")
	assert.Contains(t, res.Stdout, "hello\n")
}

func TestVariablePipelineEndToEnd(t *testing.T) {
	// A realistic layered setup: an included fragment supplies tool
	// defaults, a YAML file supplies board parameters, and the root
	// definition overrides one default.
	res := testutil.RunBuild(t, map[string]string{
		"tools.hcl": `
			defaults {
				SIM      = "verilator"
				SIM_ARGS = "--binary"
			}
		`,
		"board.yaml": "BOARD: arty-a7\nFREQ_MHZ: 100\n",
		"build.hcl": `
			include "tools.hcl"

			vars_file "board.yaml" {}

			variables {
				SIM      = "icarus"
				SIM_LINE = "$${SIM} $${SIM_ARGS} $${BOARD}@$${FREQ_MHZ}"
			}

			target "report" {
				commands = ["echo $${SIM_LINE} > $${BUILD_DIR}/report.txt"]
			}
		`,
	}, app.Config{})
	require.NoError(t, res.Err)

	report, err := os.ReadFile(filepath.Join(res.Dir, "report.txt"))
	require.NoError(t, err)
	assert.Equal(t, "icarus --binary arty-a7@100\n", string(report))
}

func TestIncludedTargetsAreBuildable(t *testing.T) {
	res := testutil.RunBuild(t, map[string]string{
		"ip/uart.hcl": `
			target "uart" {
				outputs  = ["$${BUILD_DIR}/uart.v"]
				commands = ["touch $${BUILD_DIR}/uart.v"]
			}
		`,
		"build.hcl": `
			include "ip/uart.hcl"

			phony "all" {
				prereqs = ["uart"]
			}
		`,
	}, app.Config{Targets: []string{"all"}})
	require.NoError(t, res.Err)

	assert.FileExists(t, filepath.Join(res.Dir, "uart.v"))
}

func TestBuildFileDiscovery(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "soc.hcl"), []byte(
		`target "a" { commands = ["touch `+filepath.Join(dir, "a")+`"] }`,
	), 0644))

	// No conventional build.hcl, but a single .hcl file: it is used.
	cfg, err := app.NewConfig(app.Config{LogLevel: "debug"})
	require.NoError(t, err)

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	stdout := &testutil.SafeBuffer{}
	logs := &testutil.SafeBuffer{}
	forgeApp := app.NewApp(stdout, logs, cfg, hcl.NewLoader())
	require.NoError(t, forgeApp.Run(context.Background()))

	assert.FileExists(t, filepath.Join(dir, "a"))
}
