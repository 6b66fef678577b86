// Package metrics collects Prometheus counters for the analysis
// pipeline and the quota gate.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	gateDecisions *prometheus.CounterVec
	analyses      prometheus.Counter
	searches      prometheus.Counter
	sharesCreated prometheus.Counter
	activeShares  prometheus.Gauge
	modelLatency  prometheus.Histogram
}

// NewCollector creates a Collector and registers its metrics on the
// given registry.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		gateDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nutriai_gate_decisions_total",
			Help: "Quota gate decisions by feature, tier and outcome",
		}, []string{"feature", "tier", "outcome"}),
		analyses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nutriai_analyses_total",
			Help: "Completed meal analyses",
		}),
		searches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nutriai_searches_total",
			Help: "Completed food searches",
		}),
		sharesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nutriai_share_links_created_total",
			Help: "Share links created",
		}),
		activeShares: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "nutriai_share_links_active",
			Help: "Share links currently active",
		}),
		modelLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "nutriai_model_latency_seconds",
			Help:    "Latency of upstream model calls in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 60, 90},
		}),
	}

	reg.MustRegister(
		c.gateDecisions,
		c.analyses,
		c.searches,
		c.sharesCreated,
		c.activeShares,
		c.modelLatency,
	)

	return c
}

// NewRegistry builds a registry preloaded with the standard process and
// Go runtime collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return reg
}

func (c *Collector) RecordDecision(feature, tier, outcome string) {
	c.gateDecisions.WithLabelValues(feature, tier, outcome).Inc()
}

func (c *Collector) RecordAnalysis() {
	c.analyses.Inc()
}

func (c *Collector) RecordSearch() {
	c.searches.Inc()
}

func (c *Collector) RecordShareCreated() {
	c.sharesCreated.Inc()
}

func (c *Collector) SetActiveShares(n int64) {
	c.activeShares.Set(float64(n))
}

func (c *Collector) RecordModelLatency(d time.Duration) {
	c.modelLatency.Observe(d.Seconds())
}

// Handler returns the scrape endpoint for the given gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
