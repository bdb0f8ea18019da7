package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/vk/forge/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated
// app.Config, a boolean indicating the program should exit cleanly
// (help requested), or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	flagSet := flag.NewFlagSet("forge", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
forge - a declarative, dependency-driven build runner.

Usage:
  forge [options] [target...]

Arguments:
  target
    Targets to build. With none, the definition's default target is built.

Options:
`)
		flagSet.PrintDefaults()
	}

	fileFlag := flagSet.String("f", "", "Path to the build definition file. Defaults to build.hcl in the working directory.")
	dryRunFlag := flagSet.Bool("n", false, "Dry run: print the commands of stale targets without executing them.")
	workersFlag := flagSet.Int("j", 1, "Number of targets to build concurrently.")
	verboseFlag := flagSet.Bool("v", false, "Echo each command before running it.")
	watchFlag := flagSet.Bool("w", false, "Watch prerequisites and re-run the build on changes.")
	timeoutFlag := flagSet.Duration("timeout", 0, "Default per-command timeout for targets without their own. 0 disables it.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "warn", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	if *workersFlag < 1 {
		return nil, false, &ExitError{Code: 2, Message: "-j must be at least 1"}
	}
	if *timeoutFlag < 0 {
		return nil, false, &ExitError{Code: 2, Message: "-timeout must not be negative"}
	}

	config, err := app.NewConfig(app.Config{
		BuildFile:      *fileFlag,
		Targets:        flagSet.Args(),
		DryRun:         *dryRunFlag,
		Verbose:        *verboseFlag,
		Watch:          *watchFlag,
		Workers:        *workersFlag,
		DefaultTimeout: *timeoutFlag,
		LogFormat:      logFormat,
		LogLevel:       logLevel,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	return config, false, nil
}
