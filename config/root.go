package config

import "time"

type AppInfo struct {
	Name    string `config:"name" validate:"required"`
	Version string `config:"version" validate:"required"`
}

type LoggingConfig struct {
	Level  string `config:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `config:"format" validate:"omitempty,oneof=text json"`
}

type MetricsConfig struct {
	Enabled bool   `config:"enabled"`
	Path    string `config:"path"`
}

type ObservabilityConfig struct {
	Metrics MetricsConfig `config:"metrics"`
}

type ActuatorConfig struct {
	BasePath string `config:"basePath"`
}

type ServerConfig struct {
	Addr         string        `config:"addr" validate:"required"`
	ReadTimeout  time.Duration `config:"readTimeout"`
	WriteTimeout time.Duration `config:"writeTimeout"`
	IdleTimeout  time.Duration `config:"idleTimeout"`
}

// SchedulerConfig names modules by alias.
type SchedulerConfig struct {
	// Globals must settle before any other module's effects start.
	Globals []string `config:"globals" validate:"dive,required"`
	// Warmup modules are triggered at startup instead of on first use.
	Warmup        []string      `config:"warmup" validate:"dive,required"`
	WarmupTimeout time.Duration `config:"warmupTimeout" validate:"gte=0"`
}

type Root struct {
	App           AppInfo             `config:"app"`
	Server        ServerConfig        `config:"server"`
	Logging       LoggingConfig       `config:"logging"`
	Observability ObservabilityConfig `config:"observability"`
	Actuator      ActuatorConfig      `config:"actuator"`
	Scheduler     SchedulerConfig     `config:"scheduler"`
}
