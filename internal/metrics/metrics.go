// Package metrics exports probe results as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hazz-dev/depprobe/internal/health"
)

const namespace = "depprobe"

// Collector holds the probe metrics and the registry they are registered on.
type Collector struct {
	registry *prometheus.Registry

	status     *prometheus.GaugeVec
	duration   *prometheus.HistogramVec
	executions *prometheus.CounterVec
	cacheHits  *prometheus.CounterVec
}

// New creates a Collector on a fresh registry that also carries the Go and
// process collectors.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		status: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "check_status",
				Help:      "Latest status of a check: 1 healthy, 0.5 degraded, 0 unhealthy",
			},
			[]string{"check"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "check_duration_seconds",
				Help:      "Duration of probe invocations",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"check"},
		),
		executions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "check_executions_total",
				Help:      "Probe invocations by resulting status",
			},
			[]string{"check", "status"},
		),
		cacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "check_cache_hits_total",
				Help:      "Lookups answered from a check's result cache",
			},
			[]string{"check"},
		),
	}

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.status,
		c.duration,
		c.executions,
		c.cacheHits,
	)
	return c
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Observe records a result. It has the signature of health.Observer.
func (c *Collector) Observe(r health.Result, fresh bool) {
	c.status.WithLabelValues(r.Name).Set(statusValue(r.Status))
	if !fresh {
		c.cacheHits.WithLabelValues(r.Name).Inc()
		return
	}
	c.duration.WithLabelValues(r.Name).Observe(r.Duration.Seconds())
	c.executions.WithLabelValues(r.Name, string(r.Status)).Inc()
}

func statusValue(s health.Status) float64 {
	switch s {
	case health.StatusHealthy:
		return 1
	case health.StatusDegraded:
		return 0.5
	default:
		return 0
	}
}
