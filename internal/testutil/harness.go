// Package testutil provides the harness for end-to-end tests that run
// the full application against a temporary build tree.
package testutil

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/forge/internal/app"
	"github.com/vk/forge/internal/hcl"
)

// SafeBuffer is a thread-safe buffer for capturing output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// HarnessResult holds the outcomes of one full application run.
type HarnessResult struct {
	// Dir is the temporary build tree the run executed against.
	Dir string
	// Stdout is what the run printed (tool output, dry-run commands).
	Stdout string
	// Logs is the captured structured log output.
	Logs string
	// Err is the run's error, nil on success.
	Err error
}

// RunBuild writes the given relative-path -> content files into a
// fresh temp tree and runs the application against it. An unset
// BuildFile defaults to <dir>/build.hcl; an unset LogLevel captures
// debug logs.
func RunBuild(t *testing.T, files map[string]string, cfg app.Config) *HarnessResult {
	t.Helper()
	return RunBuildInDir(t, t.TempDir(), files, cfg)
}

// RunBuildInDir is RunBuild against an existing tree, for tests that
// run the application repeatedly over the same checkout.
func RunBuildInDir(t *testing.T, dir string, files map[string]string, cfg app.Config) *HarnessResult {
	t.Helper()

	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}

	if cfg.BuildFile == "" {
		cfg.BuildFile = filepath.Join(dir, "build.hcl")
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "debug"
	}
	appConfig, err := app.NewConfig(cfg)
	require.NoError(t, err)

	stdout := &SafeBuffer{}
	logs := &SafeBuffer{}

	testApp := app.NewApp(stdout, logs, appConfig, hcl.NewLoader())
	runErr := testApp.Run(context.Background())

	return &HarnessResult{
		Dir:    dir,
		Stdout: stdout.String(),
		Logs:   logs.String(),
		Err:    runErr,
	}
}
