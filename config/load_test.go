package config_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skekre98/autorun/config"
)

// mapSource is a test implementation of config.ConfigSource
type mapSource struct {
	name   string
	data   map[string]any
	errVal error
}

func (m *mapSource) Name() string { return m.name }

func (m *mapSource) Load(ctx context.Context) (map[string]any, error) {
	if m.errVal != nil {
		return nil, m.errVal
	}
	return m.data, nil
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(context.Background(), &mapSource{name: "app", data: map[string]any{
		"app": map[string]any{"name": "catalog", "version": "1.0.0"},
	}})
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "/actuator", cfg.Actuator.BasePath)
	assert.True(t, cfg.Observability.Metrics.Enabled)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 30*time.Second, cfg.Scheduler.WarmupTimeout)
	assert.Empty(t, cfg.Scheduler.Globals)
}

func TestLoad_LaterSourcesWin(t *testing.T) {
	file := &mapSource{name: "file", data: map[string]any{
		"app":    map[string]any{"name": "catalog", "version": "1.0.0"},
		"server": map[string]any{"addr": ":9000", "readTimeout": "5s"},
		"scheduler": map[string]any{
			"globals": []any{"session"},
			"warmup":  []any{"catalog"},
		},
	}}
	env := &mapSource{name: "env", data: map[string]any{
		"server":        map[string]any{"readtimeout": "7s"},
		"observability": map[string]any{"metrics": map[string]any{"enabled": "false"}},
	}}
	cli := &mapSource{name: "cli", data: map[string]any{
		"server":    map[string]any{"addr": ":9100"},
		"scheduler": map[string]any{"warmup": "catalog, pricing"},
	}}

	cfg, err := config.Load(context.Background(), file, env, cli)
	require.NoError(t, err)

	assert.Equal(t, ":9100", cfg.Server.Addr)
	assert.Equal(t, 7*time.Second, cfg.Server.ReadTimeout)
	assert.False(t, cfg.Observability.Metrics.Enabled)
	assert.Equal(t, []string{"session"}, cfg.Scheduler.Globals)
	assert.Equal(t, []string{"catalog", "pricing"}, cfg.Scheduler.Warmup)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("source failure", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := config.Load(context.Background(), &mapSource{name: "broken", errVal: boom})
		require.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "broken")
	})

	t.Run("validation", func(t *testing.T) {
		_, err := config.Load(context.Background(), &mapSource{name: "app", data: map[string]any{
			"app": map[string]any{"name": "catalog"},
		}})
		var bindErr *config.BindError
		require.ErrorAs(t, err, &bindErr)
		assert.Equal(t, "validate", bindErr.Stage)
	})

	t.Run("bad logging format", func(t *testing.T) {
		_, err := config.Load(context.Background(), &mapSource{name: "app", data: map[string]any{
			"app":     map[string]any{"name": "catalog", "version": "1"},
			"logging": map[string]any{"format": "xml"},
		}})
		var bindErr *config.BindError
		require.ErrorAs(t, err, &bindErr)
		assert.Equal(t, "validate", bindErr.Stage)
	})

	t.Run("empty alias", func(t *testing.T) {
		_, err := config.Load(context.Background(), &mapSource{name: "env", data: map[string]any{
			"app":       map[string]any{"name": "catalog", "version": "1"},
			"scheduler": map[string]any{"globals": "session,,"},
		}})
		var bindErr *config.BindError
		require.ErrorAs(t, err, &bindErr)
		assert.Equal(t, "validate", bindErr.Stage)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := config.Load(ctx, &mapSource{name: "app"})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestBinder_DecodeError(t *testing.T) {
	type target struct {
		Port int `config:"port"`
	}
	var out target
	err := config.NewBinder().Bind(map[string]any{"port": "not-a-number"}, &out)

	var bindErr *config.BindError
	require.ErrorAs(t, err, &bindErr)
	assert.Equal(t, "decode", bindErr.Stage)
	assert.NotNil(t, errors.Unwrap(bindErr))
}
