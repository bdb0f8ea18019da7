package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/vk/forge/internal/ctxlog"
	"github.com/vk/forge/internal/dag"
)

// outputTailLimit bounds how much captured output a ProcessError carries.
const outputTailLimit = 4096

// runCommands expands and executes a target's commands in declared
// order, stopping at the first failure. It returns the exit code of
// the last command that ran and the combined captured output.
func (e *Executor) runCommands(ctx context.Context, node *dag.Node) (int, string, error) {
	logger := ctxlog.FromContext(ctx).With("target", node.ID)

	timeout := node.Target.Timeout
	if timeout == 0 {
		timeout = e.opts.DefaultTimeout
	}

	capture := &syncBuffer{}
	for _, tmpl := range node.Target.Commands {
		command, err := e.resolver.Expand(tmpl)
		if err != nil {
			return 0, capture.String(), fmt.Errorf("target '%s': %w", node.ID, err)
		}

		if e.opts.Verbose {
			fmt.Fprintln(e.opts.Stdout, command)
		}

		logger.Debug("Invoking command.", "command", command, "timeout", timeout)
		exitCode, err := e.runCommand(ctx, command, timeout, capture)
		if err != nil {
			procErr := &ProcessError{
				Target:   node.ID,
				Command:  command,
				ExitCode: exitCode,
				Output:   tail(capture.String()),
				Timeout:  errors.Is(err, context.DeadlineExceeded),
			}
			return exitCode, capture.String(), procErr
		}
	}
	return 0, capture.String(), nil
}

// runCommand spawns a single shell command, streaming its output to
// the run's stdout/stderr while capturing a copy.
func (e *Executor) runCommand(ctx context.Context, command string, timeout time.Duration, capture *syncBuffer) (int, error) {
	cmdCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		cmdCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(cmdCtx, "/bin/sh", "-c", command)
	cmd.Stdout = io.MultiWriter(capture, e.opts.Stdout)
	cmd.Stderr = io.MultiWriter(capture, e.opts.Stderr)

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}

	// Prefer reporting the deadline over the resulting kill signal.
	if cmdCtx.Err() != nil && ctx.Err() == nil {
		return -1, context.DeadlineExceeded
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), err
	}
	return -1, err
}

// touchSentinel creates or refreshes a target's sentinel file so the
// next run can judge staleness from its timestamp.
func touchSentinel(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating sentinel directory: %w", err)
	}
	now := time.Now()
	if err := os.Chtimes(path, now, now); err == nil {
		return nil
	}
	if err := os.WriteFile(path, nil, 0644); err != nil {
		return fmt.Errorf("writing sentinel '%s': %w", path, err)
	}
	return nil
}

// tail returns the last portion of s, bounded by outputTailLimit.
func tail(s string) string {
	s = strings.TrimRight(s, "\n")
	if len(s) <= outputTailLimit {
		return s
	}
	return "..." + s[len(s)-outputTailLimit:]
}

// syncBuffer is an io.Writer safe for the concurrent stdout/stderr
// copies exec.Cmd runs in separate goroutines.
type syncBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}
