package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"
)

// CLISource loads configuration from command-line flags in dot notation:
//
//	--server.addr=:9090 --scheduler.warmup catalog
//	  -> {server: {addr: ":9090"}, scheduler: {warmup: "catalog"}}
//
// Single-dash long flags (-server.addr=:9090) are accepted. Empty values and
// non-flag arguments are ignored. Values stay strings.
type CLISource struct {
	// Args replaces os.Args[1:] when non-nil.
	Args []string
}

func (c *CLISource) Name() string { return "cli" }

func (c *CLISource) Load(ctx context.Context) (map[string]any, error) {
	args := c.Args
	if args == nil {
		args = os.Args[1:]
	}
	return parseCliFlags(args), nil
}

func parseCliFlags(raw []string) map[string]any {
	result := make(map[string]any)
	fs := pflag.NewFlagSet("config", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)

	registered := make(map[string]bool)
	args := normalizeArgs(raw)

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") {
			continue
		}
		name := extractFlagName(arg)
		if name == "" {
			continue
		}
		if !registered[name] {
			fs.String(name, "", fmt.Sprintf("Config value for %s", name))
			registered[name] = true
		}
		if !strings.Contains(arg, "=") && i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			i++
		}
	}

	_ = fs.Parse(args)

	fs.VisitAll(func(flag *pflag.Flag) {
		if !flag.Changed {
			return
		}
		if value := flag.Value.String(); value != "" {
			setNestedValue(result, strings.Split(flag.Name, "."), value)
		}
	})
	return result
}

// normalizeArgs converts single-dash long flags to double-dash for pflag.
func normalizeArgs(args []string) []string {
	normalized := make([]string, len(args))
	for i, arg := range args {
		trimmed := strings.TrimPrefix(arg, "-")
		if strings.HasPrefix(arg, "-") && !strings.HasPrefix(arg, "--") && len(trimmed) > 1 && trimmed[0] != '=' {
			normalized[i] = "-" + arg
			continue
		}
		normalized[i] = arg
	}
	return normalized
}

// extractFlagName strips dashes and any "=value".
func extractFlagName(arg string) string {
	arg = strings.TrimLeft(arg, "-")
	name, _, _ := strings.Cut(arg, "=")
	return name
}
