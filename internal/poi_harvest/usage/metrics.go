package usage

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics mirrors the usage counters as Prometheus series. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	Calls    *prometheus.CounterVec
	Errors   *prometheus.CounterVec
	Entities *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Calls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "poi_harvest_calls_total",
				Help: "Total number of provider calls",
			},
			[]string{"partition", "category"},
		),
		Errors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "poi_harvest_errors_total",
				Help: "Total number of failed provider calls",
			},
			[]string{"partition", "category"},
		),
		Entities: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "poi_harvest_entities_total",
				Help: "Total number of unique entities admitted",
			},
			[]string{"partition"},
		),
	}
}

func (m *Metrics) call(partition, category string) {
	if m == nil {
		return
	}
	m.Calls.WithLabelValues(partition, category).Inc()
}

func (m *Metrics) failure(partition, category string) {
	if m == nil {
		return
	}
	m.Errors.WithLabelValues(partition, category).Inc()
}

func (m *Metrics) entities(partition string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.Entities.WithLabelValues(partition).Add(float64(n))
}
