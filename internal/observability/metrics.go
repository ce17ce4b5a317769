// Package observability exposes the engine's Prometheus metrics.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "deliverycost"

// Metrics captures cost run health signals.
type Metrics struct {
	runs            *prometheus.CounterVec
	runDuration     *prometheus.HistogramVec
	productsWritten *prometheus.CounterVec
	ordersSkipped   *prometheus.CounterVec
	manifestRows    *prometheus.CounterVec
}

// NewMetrics creates the metrics and registers them with registerer.
// A nil registerer uses the Prometheus default registry.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Cost runs by kind and final status.",
		}, []string{"kind", "status"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of cost runs.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"kind"}),
		productsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "products_written_total",
			Help:      "Products whose delivery cost was written, by cost source.",
		}, []string{"source"}),
		ordersSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_skipped_total",
			Help:      "Orders left out of aggregation, by reason.",
		}, []string{"reason"}),
		manifestRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "manifest_rows_total",
			Help:      "Manifest rows by match outcome.",
		}, []string{"outcome"}),
	}

	registerer.MustRegister(m.runs, m.runDuration, m.productsWritten, m.ordersSkipped, m.manifestRows)
	return m
}

// RunFinished records one completed or failed run
func (m *Metrics) RunFinished(kind, status string, elapsed time.Duration) {
	m.runs.WithLabelValues(kind, status).Inc()
	m.runDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// ProductsWritten records n products written with the given source
func (m *Metrics) ProductsWritten(source string, n int) {
	if n > 0 {
		m.productsWritten.WithLabelValues(source).Add(float64(n))
	}
}

// OrdersSkipped records n orders skipped for reason
func (m *Metrics) OrdersSkipped(reason string, n int) {
	if n > 0 {
		m.ordersSkipped.WithLabelValues(reason).Add(float64(n))
	}
}

// ManifestRows records n manifest rows with the given match outcome
func (m *Metrics) ManifestRows(outcome string, n int) {
	if n > 0 {
		m.manifestRows.WithLabelValues(outcome).Add(float64(n))
	}
}
