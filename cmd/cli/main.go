package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/vk/forge/internal/app"
	"github.com/vk/forge/internal/cli"
	"github.com/vk/forge/internal/hcl"
)

// Exit codes: definition problems (parse errors, unknown targets,
// cycles, bad variables) and execution failures are distinguishable
// from scripts.
const (
	exitExecutionFailure  = 1
	exitDefinitionFailure = 2
)

// main is the entrypoint for the forge build runner.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})))

	if err := run(os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// run encapsulates the main application logic for easier testing and
// error handling.
func run(outW, errW io.Writer, args []string) error {
	appConfig, shouldExit, err := cli.Parse(args, errW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	forgeApp := app.NewApp(outW, errW, appConfig, hcl.NewLoader())
	return forgeApp.Run(ctx)
}

// exitCode maps an error to the process exit status.
func exitCode(err error) int {
	var exitErr *cli.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	var defErr *app.DefinitionError
	if errors.As(err, &defErr) {
		return exitDefinitionFailure
	}
	return exitExecutionFailure
}
