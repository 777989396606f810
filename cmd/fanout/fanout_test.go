package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ygrebnov/batches/internal/config"
	"github.com/ygrebnov/batches/metrics"
)

func testConfig(t *testing.T, failureRate float64) *config.Config {
	t.Helper()
	cfg, err := config.New("")
	require.NoError(t, err)
	queueCapacity := 2
	cfg.Pool.MinWorkers, cfg.Pool.MaxWorkers, cfg.Pool.QueueCapacity = 2, 3, &queueCapacity
	cfg.Queries.Count = 12
	cfg.Queries.Batches = 3
	cfg.Queries.MinLatency = time.Millisecond
	cfg.Queries.MaxLatency = 5 * time.Millisecond
	cfg.Queries.FailureRate = failureRate
	return cfg
}

func newTestFanout(t *testing.T, cfg *config.Config, mp metrics.Provider) *fanout {
	t.Helper()
	log := zap.NewNop()
	p, err := newPool(cfg.Pool, log, mp)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })
	return &fanout{cfg: cfg, log: log, pool: p, metrics: mp, progress: io.Discard, seed: 7}
}

func TestFanout_Run(t *testing.T) {
	cfg := testConfig(t, 0)
	mp := metrics.NewBasicProvider()
	f := newTestFanout(t, cfg, mp)

	rep, err := f.run(context.Background())
	require.NoError(t, err)
	require.False(t, rep.Interrupted)
	require.Len(t, rep.Batches, 3)

	total := 0
	for _, b := range rep.Batches {
		require.Equal(t, 12, b.Queries)
		require.Zero(t, b.Failed)
		require.Empty(t, b.Failures)
		require.Positive(t, b.Slowest)
	}
	for name, n := range rep.Workers {
		require.True(t, strings.HasPrefix(name, cfg.Pool.NamePrefix+"-"), "worker %q", name)
		total += n
	}
	require.Equal(t, 36, total)

	// every health check beyond workers + queue capacity is shed
	require.Equal(t, hostCount(cfg), rep.ChecksOK)
	require.Equal(t, cfg.Pool.MaxWorkers, rep.ChecksShed)
	require.EqualValues(t, 36, mp.CounterValue("batch_outcomes_drained_total"))
	require.EqualValues(t, cfg.Pool.MaxWorkers, mp.CounterValue("pool_units_rejected_total"))
}

func TestFanout_RunWithFailures(t *testing.T) {
	cfg := testConfig(t, 1)
	f := newTestFanout(t, cfg, metrics.NewNoopProvider())

	rep, err := f.run(context.Background())
	require.NoError(t, err)
	for _, b := range rep.Batches {
		require.Equal(t, b.Queries, b.Failed)
		require.Len(t, b.Failures, b.Queries)
		require.Contains(t, b.Failures[0], "resource unavailable")
	}
}

func TestFanout_Interrupted(t *testing.T) {
	cfg := testConfig(t, 0)
	cfg.Queries.MinLatency, cfg.Queries.MaxLatency = time.Second, time.Second
	f := newTestFanout(t, cfg, metrics.NewNoopProvider())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	rep, err := f.run(ctx)
	require.Error(t, err)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.NotNil(t, rep)
}

func TestRenderReport(t *testing.T) {
	color.NoColor = true
	rep := &report{
		Batches: []batchSummary{
			{Name: "batch-1", Queries: 3, Slowest: time.Millisecond, Elapsed: 2 * time.Millisecond},
			{Name: "batch-2", Queries: 2, Failed: 1, Failures: []string{"#1 boom"}},
		},
		Workers:     map[string]int{"fanout-1": 3, "fanout-2": 2},
		ChecksOK:    4,
		ChecksShed:  1,
		Interrupted: true,
	}

	var buf bytes.Buffer
	renderReport(&buf, rep)
	out := buf.String()

	for _, want := range []string{"batch-1", "batch-2", "fanout-1", "fanout-2", "batch-2 #1 boom",
		"health checks: 4 accepted, 1 shed", "queries: 5, failed: 1", "interrupted"} {
		require.Contains(t, out, want)
	}
}

func TestMetricsRouter(t *testing.T) {
	reg := prometheus.NewRegistry()
	mp := metrics.NewPrometheusProvider(reg, "fanout")
	f := newTestFanout(t, testConfig(t, 0), mp)
	_, err := f.run(context.Background())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	metricsRouter(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "fanout_batch_outcomes_drained_total 36")
	require.Contains(t, rec.Body.String(), "fanout_pool_units_completed_total")

	n, err := testutil.GatherAndCount(reg, "fanout_pool_units_rejected_total")
	require.NoError(t, err)
	require.Equal(t, 1, n)
}
