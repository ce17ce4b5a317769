package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RunFinished("recalculate", "completed", 150*time.Millisecond)
	m.RunFinished("recalculate", "completed", time.Second)
	m.RunFinished("import", "failed", time.Second)
	m.ProductsWritten("direct", 3)
	m.ProductsWritten("override", 0)
	m.OrdersSkipped("excluded_carrier", 2)
	m.ManifestRows("ambiguous", 1)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.runs.WithLabelValues("recalculate", "completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("import", "failed")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.productsWritten.WithLabelValues("direct")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ordersSkipped.WithLabelValues("excluded_carrier")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.manifestRows.WithLabelValues("ambiguous")))

	// zero adds create no series
	assert.Equal(t, 1, testutil.CollectAndCount(m.productsWritten))
}

func TestMetrics_Registered(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.RunFinished("import", "completed", time.Second)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["deliverycost_runs_total"])
	assert.True(t, names["deliverycost_run_duration_seconds"])

	assert.Panics(t, func() { NewMetrics(reg) }, "double registration must fail loudly")
}
