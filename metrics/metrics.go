// Package metrics exposes scheduler activity as Prometheus metrics.
//
// Exported series:
//
//	autorun_effects_started_total{module,effect}
//	autorun_effects_completed_total{module,effect}
//	autorun_effects_failed_total{module,effect}
//	autorun_effect_duration_seconds{module,effect}
//	autorun_effects_in_flight
//	autorun_modules_settled_total{module}
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/skekre98/autorun/core"
)

const namespace = "autorun"

// Collector implements core.Observer.
type Collector struct {
	started   *prometheus.CounterVec
	completed *prometheus.CounterVec
	failed    *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	inFlight  prometheus.Gauge
	settled   *prometheus.CounterVec
}

var _ core.Observer = (*Collector)(nil)

// NewCollector creates the metrics and registers them on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	labels := []string{"module", "effect"}
	c := &Collector{
		started: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "effects_started_total",
			Help:      "Total number of effect invocations started",
		}, labels),
		completed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "effects_completed_total",
			Help:      "Total number of effect invocations that succeeded",
		}, labels),
		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "effects_failed_total",
			Help:      "Total number of effect invocations that failed",
		}, labels),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "effect_duration_seconds",
			Help:      "Effect execution time in seconds",
			Buckets:   prometheus.DefBuckets,
		}, labels),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "effects_in_flight",
			Help:      "Current number of running effects",
		}),
		settled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "modules_settled_total",
			Help:      "Total number of modules whose effects all completed",
		}, []string{"module"}),
	}

	reg.MustRegister(c.started, c.completed, c.failed, c.duration, c.inFlight, c.settled)
	return c
}

func (c *Collector) EffectStarted(module, effect string) {
	c.started.WithLabelValues(module, effect).Inc()
	c.inFlight.Inc()
}

func (c *Collector) EffectFinished(module, effect string, elapsed time.Duration, err error) {
	c.inFlight.Dec()
	c.duration.WithLabelValues(module, effect).Observe(elapsed.Seconds())
	if err != nil {
		c.failed.WithLabelValues(module, effect).Inc()
		return
	}
	c.completed.WithLabelValues(module, effect).Inc()
}

func (c *Collector) ModuleSettled(module string) {
	c.settled.WithLabelValues(module).Inc()
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
