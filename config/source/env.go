package source

import (
	"context"
	"os"
	"sort"
	"strings"
)

// EnvPrefix is the default prefix for environment variables.
const EnvPrefix = "AUTORUN_"

// EnvSource loads configuration from environment variables.
//
// Variables must start with Prefix (EnvPrefix when empty). The rest of the
// name is lowercased and split on underscores into nested keys:
//
//	AUTORUN_SERVER_ADDR=:9090          -> {server: {addr: ":9090"}}
//	AUTORUN_SCHEDULER_WARMUP=a,b       -> {scheduler: {warmup: "a,b"}}
//
// Values stay strings; the binder converts them.
type EnvSource struct {
	Prefix string
	// Environ replaces os.Environ, for tests.
	Environ func() []string
}

func (e *EnvSource) Name() string { return "env" }

func (e *EnvSource) Load(ctx context.Context) (map[string]any, error) {
	environ := e.Environ
	if environ == nil {
		environ = os.Environ
	}
	return fromPairs(e.prefix(), environ()), nil
}

func (e *EnvSource) prefix() string {
	if e.Prefix == "" {
		return EnvPrefix
	}
	return e.Prefix
}

// fromPairs nests KEY=value pairs carrying prefix. Pairs are sorted first so
// conflicts between a leaf and a deeper key resolve the same way every time.
func fromPairs(prefix string, pairs []string) map[string]any {
	sorted := append([]string(nil), pairs...)
	sort.Strings(sorted)

	result := make(map[string]any)
	for _, pair := range sorted {
		key, value, found := strings.Cut(pair, "=")
		if !found || !strings.HasPrefix(key, prefix) {
			continue
		}
		key = strings.ToLower(strings.TrimPrefix(key, prefix))
		setNestedValue(result, strings.Split(key, "_"), value)
	}
	return result
}
