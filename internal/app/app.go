package app

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/vk/forge/internal/config"
	"github.com/vk/forge/internal/fsutil"
)

// App encapsulates the engine's dependencies, configuration, and lifecycle.
type App struct {
	outW   io.Writer
	errW   io.Writer
	logger *slog.Logger
	config *Config
	loader config.Loader
}

// NewApp constructs the application with its own isolated logger.
// Logs go to errW so stdout stays reserved for tool output and
// dry-run command listings.
func NewApp(outW, errW io.Writer, cfg *Config, loader config.Loader) *App {
	return &App{
		outW:   outW,
		errW:   errW,
		logger: newLogger(cfg.LogLevel, cfg.LogFormat, errW),
		config: cfg,
		loader: loader,
	}
}

// DefinitionError marks failures caused by the build definition
// itself, parse errors, unknown targets, cycles, bad variables, as
// opposed to failures of the build's external commands. The CLI maps
// the two classes to distinct exit codes.
type DefinitionError struct {
	Err error
}

func (e *DefinitionError) Error() string { return e.Err.Error() }

func (e *DefinitionError) Unwrap() error { return e.Err }

// buildFilePath resolves the definition to load, discovering one in
// the working directory when none was passed.
func (a *App) buildFilePath() (string, error) {
	if a.config.BuildFile != "" {
		return a.config.BuildFile, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("determining working directory: %w", err)
	}
	return fsutil.FindBuildFile(cwd)
}
