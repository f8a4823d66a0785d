// Package metrics exposes client activity as Prometheus series.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/quantumauth-io/tempo-gm-client/internal/gm-client/history"
	"github.com/quantumauth-io/tempo-gm-client/internal/gm-client/snapshot"
)

// Metrics implements the read, refresh and transaction observers on a private
// registry.
type Metrics struct {
	registry *prometheus.Registry

	readsTotal  *prometheus.CounterVec
	readLatency *prometheus.HistogramVec

	refreshesTotal     *prometheus.CounterVec
	refreshLatency     prometheus.Histogram
	unavailableFields  prometheus.Gauge
	snapshotGeneration prometheus.Gauge

	txTotal *prometheus.CounterVec
}

func New(namespace string) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		readsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "chain_reads_total",
				Help:      "Chain queries by method and result",
			},
			[]string{"method", "result"},
		),
		readLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "chain_read_duration_seconds",
				Help:      "Chain query latency",
				Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method"},
		),

		refreshesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "snapshot_refreshes_total",
				Help:      "Snapshot refreshes by outcome",
			},
			[]string{"outcome"},
		),
		refreshLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "snapshot_refresh_duration_seconds",
				Help:      "Time to assemble a snapshot",
				Buckets:   prometheus.DefBuckets,
			},
		),
		unavailableFields: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "snapshot_unavailable_fields",
				Help:      "Fields missing from the last published snapshot",
			},
		),
		snapshotGeneration: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "snapshot_generation",
				Help:      "Generation of the last published snapshot",
			},
		),

		txTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transactions_total",
				Help:      "Transaction lifecycle transitions by status",
			},
			[]string{"status"},
		),
	}

	registry.MustRegister(
		m.readsTotal,
		m.readLatency,
		m.refreshesTotal,
		m.refreshLatency,
		m.unavailableFields,
		m.snapshotGeneration,
		m.txTotal,
	)
	return m
}

func (m *Metrics) ObserveRead(method string, took time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.readsTotal.WithLabelValues(method, result).Inc()
	m.readLatency.WithLabelValues(method).Observe(took.Seconds())
}

func (m *Metrics) ObserveRefresh(s snapshot.Snapshot, published bool, took time.Duration) {
	m.refreshLatency.Observe(took.Seconds())
	if !published {
		m.refreshesTotal.WithLabelValues("stale").Inc()
		return
	}

	outcome := "complete"
	if len(s.Unavailable) > 0 {
		outcome = "partial"
	}
	m.refreshesTotal.WithLabelValues(outcome).Inc()
	m.unavailableFields.Set(float64(len(s.Unavailable)))
	m.snapshotGeneration.Set(float64(s.Generation))
}

func (m *Metrics) ObserveTx(s history.Status) {
	m.txTotal.WithLabelValues(string(s)).Inc()
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}
