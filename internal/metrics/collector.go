package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ModelState reports the embedding model's readiness at scrape time.
type ModelState interface {
	ModelLoaded() bool
	Backend() string
}

// Collector implements prometheus.Collector to read live gauges at scrape time.
type Collector struct {
	state       ModelState
	modelLoaded *prometheus.Desc
}

// NewCollector creates a collector over state. state may be nil (the gauge
// reports 0).
func NewCollector(state ModelState) *Collector {
	return &Collector{
		state: state,
		modelLoaded: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "model_loaded"),
			"Whether the embedding model is initialized (1) or not (0).",
			[]string{"backend"}, nil,
		),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.modelLoaded
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if c.state == nil {
		ch <- prometheus.MustNewConstMetric(c.modelLoaded, prometheus.GaugeValue, 0, "")
		return
	}
	v := 0.0
	if c.state.ModelLoaded() {
		v = 1
	}
	ch <- prometheus.MustNewConstMetric(c.modelLoaded, prometheus.GaugeValue, v, c.state.Backend())
}
