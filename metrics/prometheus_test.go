package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestPrometheusProvider_RegistersAndRecords(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheusProvider(reg, "fanout")

	p.Counter("pool_units_completed_total", WithDescription("completed units")).Add(4)
	p.Counter("pool_units_completed_total").Add(1)
	p.UpDownCounter("pool_units_inflight").Add(3)
	p.UpDownCounter("pool_units_inflight").Add(-2)
	p.Histogram("pool_unit_duration_seconds").Record(0.25)

	require.Equal(t, 5.0, testutil.ToFloat64(p.Counter("pool_units_completed_total").(promCounter).c))
	require.Equal(t, 1.0, testutil.ToFloat64(p.UpDownCounter("pool_units_inflight").(promGauge).g))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make(map[string]struct{}, len(families))
	for _, f := range families {
		names[f.GetName()] = struct{}{}
	}
	require.Contains(t, names, "fanout_pool_units_completed_total")
	require.Contains(t, names, "fanout_pool_units_inflight")
	require.Contains(t, names, "fanout_pool_unit_duration_seconds")
}

func TestPrometheusProvider_ReusesAlreadyRegisteredCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := NewPrometheusProvider(reg, "")
	second := NewPrometheusProvider(reg, "")

	first.Counter("shared_total").Add(2)
	second.Counter("shared_total").Add(3)

	require.Equal(t, 5.0, testutil.ToFloat64(first.Counter("shared_total").(promCounter).c))
}

func TestPrometheusProvider_NegativeCounterAddIgnored(t *testing.T) {
	p := NewPrometheusProvider(prometheus.NewRegistry(), "")
	c := p.Counter("monotonic_total")
	require.NotPanics(t, func() { c.Add(-1) })
	require.Equal(t, 0.0, testutil.ToFloat64(c.(promCounter).c))
}

func TestPrometheusProvider_InvalidNamePanics(t *testing.T) {
	p := NewPrometheusProvider(prometheus.NewRegistry(), "")
	require.Panics(t, func() { p.Counter("bad-name") })
}

func TestPrometheusProvider_ConflictingRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := NewPrometheusProvider(reg, "")
	second := NewPrometheusProvider(reg, "")

	first.Counter("conflict_total", WithLabels(map[string]string{"pool": "a"}))
	require.Panics(t, func() {
		second.Counter("conflict_total", WithLabels(map[string]string{"host": "b"}))
	})
}
