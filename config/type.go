package config

import "context"

// ConfigSource represents a source of configuration data.
//
// Implementations include YAML files, .env files, environment variables and
// command-line flags. Load must be safe for concurrent use.
type ConfigSource interface {
	// Load retrieves configuration data from this source as a string-keyed map.
	// The returned map may contain nested maps for hierarchical configuration.
	// Implementations must return a copy of the data.
	Load(ctx context.Context) (map[string]any, error)

	// Name returns a human-readable identifier used in error messages.
	Name() string
}
