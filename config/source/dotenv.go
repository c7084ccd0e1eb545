package source

import (
	"context"
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
)

// DotEnvSource reads a .env file with the same naming rules as EnvSource.
// A missing file yields an empty map unless Required is set.
type DotEnvSource struct {
	Path     string
	Prefix   string
	Required bool
}

func (d *DotEnvSource) Name() string { return "dotenv" }

func (d *DotEnvSource) Load(ctx context.Context) (map[string]any, error) {
	path := d.Path
	if path == "" {
		path = ".env"
	}
	vars, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !d.Required {
			return map[string]any{}, nil
		}
		return nil, err
	}

	prefix := d.Prefix
	if prefix == "" {
		prefix = EnvPrefix
	}
	pairs := make([]string, 0, len(vars))
	for k, v := range vars {
		pairs = append(pairs, k+"="+v)
	}
	return fromPairs(prefix, pairs), nil
}
