// Package fsutil provides file system utility functions.
package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultBuildFile is the build definition name looked up when the
// user does not pass one explicitly.
const DefaultBuildFile = "build.hcl"

// FindBuildFile locates the build definition to load from dir: the
// conventional build.hcl if present, otherwise a sole .hcl file in the
// directory. Multiple candidates without the conventional name are
// ambiguous and rejected.
func FindBuildFile(dir string) (string, error) {
	conventional := filepath.Join(dir, DefaultBuildFile)
	if _, err := os.Stat(conventional); err == nil {
		return conventional, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("scanning %s for build files: %w", dir, err)
	}

	var candidates []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".hcl") {
			candidates = append(candidates, filepath.Join(dir, entry.Name()))
		}
	}

	switch len(candidates) {
	case 0:
		return "", fmt.Errorf("no build definition found in %s (expected %s)", dir, DefaultBuildFile)
	case 1:
		return candidates[0], nil
	default:
		return "", fmt.Errorf("multiple .hcl files in %s and none is named %s; pass one with -f", dir, DefaultBuildFile)
	}
}
