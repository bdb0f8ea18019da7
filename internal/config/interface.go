package config

import "context"

// Loader is the interface for a format-specific build-definition
// loader. Load reads the root definition file at path, follows its
// includes, and translates everything into the format-agnostic model.
type Loader interface {
	Load(ctx context.Context, path string) (*Model, error)
}
