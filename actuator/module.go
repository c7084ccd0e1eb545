package actuator

import (
	"context"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/skekre98/autorun/config"
	"github.com/skekre98/autorun/core"
	"github.com/skekre98/autorun/metrics"
	"github.com/skekre98/autorun/web"
)

const Name = "actuator"

type component struct{}

// Component mounts health, info, module and metrics endpoints under
// config.Root.Actuator.BasePath. Metrics are served from the
// prometheus.Gatherer registered with core.Put, when there is one.
func Component() core.Component { return &component{} }

func (m *component) Name() string        { return Name }
func (m *component) DependsOn() []string { return []string{web.Name} }

func (m *component) Configure(s *core.Scheduler) error {
	engine := web.Engine(s)
	cfg := core.Get[config.Root](s)
	started := time.Now()

	group := engine.Group(cfg.Actuator.BasePath)

	// Health: DOWN while any module has failed effects waiting for a retry.
	group.GET("/health", func(ctx *gin.Context) {
		status, code := "UP", http.StatusOK
		checks := []gin.H{}
		for _, mod := range s.Snapshot() {
			if !mod.Failed() {
				continue
			}
			status, code = "DOWN", http.StatusServiceUnavailable
			checks = append(checks, gin.H{"module": mod.Name, "status": "DOWN", "effects": mod.Effects})
		}
		ctx.JSON(code, gin.H{
			"status": status,
			"checks": checks,
		})
	})

	// Info
	group.GET("/info", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{
			"app": gin.H{
				"name":    cfg.App.Name,
				"version": cfg.App.Version,
			},
			"runtime": gin.H{
				"go":           runtime.Version(),
				"numGoroutine": runtime.NumGoroutine(),
				"uptime":       time.Since(started).Round(time.Second).String(),
				"time":         time.Now().UTC().Format(time.RFC3339),
				"pid":          os.Getpid(),
			},
		})
	})

	// Modules
	group.GET("/modules", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{
			"modules": s.Snapshot(),
			"globals": classNames(s.Globals()),
		})
	})

	// Metrics
	if cfg.Observability.Metrics.Enabled {
		gatherer, ok := core.Lookup[prometheus.Gatherer](s)
		if !ok {
			gatherer = prometheus.DefaultGatherer
		}
		h := gin.WrapH(metrics.Handler(gatherer))
		if path := cfg.Observability.Metrics.Path; path != "" {
			engine.GET(path, h)
		} else {
			group.GET("/metrics", h)
		}
	}

	return nil
}

func (m *component) Start(_ context.Context, _ *core.Scheduler) error { return nil }
func (m *component) Stop(_ context.Context, _ *core.Scheduler) error  { return nil }

func classNames(classes []*core.Class) []string {
	out := make([]string, 0, len(classes))
	for _, c := range classes {
		out = append(out, c.Name())
	}
	return out
}
