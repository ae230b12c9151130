// Package metrics exports the collector's own health and the latest snapshot
// samples in Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sysdash/internal/monitoring"
)

const namespace = "sysdash"

// Result labels of the collections counter.
const (
	ResultSuccess = "success"
	ResultPartial = "partial"
	ResultFailed  = "failed"
)

// Metrics holds the Prometheus collectors. It implements
// monitoring.Observer.
type Metrics struct {
	registry *prometheus.Registry

	collections   *prometheus.CounterVec
	duration      prometheus.Histogram
	groupFailures *prometheus.CounterVec
	lastSuccess   prometheus.Gauge
	samples       *prometheus.GaugeVec
}

// New registers every collector on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		collections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collections_total",
			Help:      "Snapshot collections by result.",
		}, []string{"result"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "collection_duration_seconds",
			Help:      "Wall time of one snapshot collection.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5, 10},
		}),
		groupFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "group_failures_total",
			Help:      "Metric groups left absent from a snapshot.",
		}, []string{"group"}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last collection that produced a snapshot.",
		}),
		samples: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sample_value",
			Help:      "Latest numeric readings of the host, by metric name.",
		}, []string{"metric"}),
	}

	m.registry.MustRegister(
		m.collections,
		m.duration,
		m.groupFailures,
		m.lastSuccess,
		m.samples,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

var _ monitoring.Observer = (*Metrics)(nil)

// ObserveCollection records the outcome of one collection.
func (m *Metrics) ObserveCollection(d time.Duration, failed []monitoring.Group, err error) {
	m.duration.Observe(d.Seconds())
	for _, g := range failed {
		m.groupFailures.WithLabelValues(string(g)).Inc()
	}

	switch {
	case err != nil:
		m.collections.WithLabelValues(ResultFailed).Inc()
		return
	case len(failed) > 0:
		m.collections.WithLabelValues(ResultPartial).Inc()
	default:
		m.collections.WithLabelValues(ResultSuccess).Inc()
	}
	m.lastSuccess.SetToCurrentTime()
}

// ObserveSnapshot replaces the sample gauges with the snapshot's readings.
func (m *Metrics) ObserveSnapshot(s *monitoring.Snapshot) {
	if s == nil {
		return
	}
	m.samples.Reset()
	for _, sample := range s.Samples() {
		m.samples.WithLabelValues(sample.Metric).Set(sample.Value)
	}
}

// RegisterGauge exposes a value computed at scrape time, e.g. the number of
// connected dashboard clients.
func (m *Metrics) RegisterGauge(name, help string, fn func() float64) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, fn))
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
