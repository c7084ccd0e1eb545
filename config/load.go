package config

import (
	"context"
	"fmt"
	"time"
)

// Load merges the sources in order (later sources win), binds the result to
// a Root and validates it. Defaults are applied before validation.
func Load(ctx context.Context, sources ...ConfigSource) (Root, error) {
	var cfg Root

	merged := Defaults()
	for _, src := range sources {
		select {
		case <-ctx.Done():
			return cfg, ctx.Err()
		default:
		}

		vals, err := src.Load(ctx)
		if err != nil {
			return cfg, fmt.Errorf("failed to load config from %s: %w", src.Name(), err)
		}
		mergeMaps(merged, vals)
	}

	if err := NewBinder().Bind(merged, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to bind config: %w", err)
	}
	return cfg, nil
}

// Defaults is the base layer every Load starts from.
func Defaults() map[string]any {
	return map[string]any{
		"server": map[string]any{
			"addr":         ":8080",
			"readTimeout":  "10s",
			"writeTimeout": "10s",
			"idleTimeout":  "60s",
		},
		"logging": map[string]any{
			"level":  "info",
			"format": "text",
		},
		"observability": map[string]any{
			"metrics": map[string]any{
				"enabled": true,
				"path":    "/actuator/metrics",
			},
		},
		"actuator": map[string]any{
			"basePath": "/actuator",
		},
		"scheduler": map[string]any{
			"warmupTimeout": (30 * time.Second).String(),
		},
	}
}
