package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Options selects the handler. Format is "text" or "json"; Level is any
// slog level name ("debug", "info", "warn", "error").
type Options struct {
	Level  string
	Format string
	Output io.Writer
}

func New(opts Options) *slog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	hopts := &slog.HandlerOptions{Level: ParseLevel(opts.Level)}

	var h slog.Handler
	if strings.EqualFold(opts.Format, "json") {
		h = slog.NewJSONHandler(out, hopts)
	} else {
		// Text in dev is easier to read.
		h = slog.NewTextHandler(out, hopts)
	}
	return slog.New(h)
}

// ParseLevel falls back to info for unknown names.
func ParseLevel(name string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo
	}
	return l
}

type key struct{}

// WithLogger returns a context carrying l.
func WithLogger(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, key{}, l)
}

// FromContext returns the logger stored by WithLogger, or slog.Default.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(key{}).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}
