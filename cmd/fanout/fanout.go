package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ygrebnov/batches"
	"github.com/ygrebnov/batches/internal/config"
	"github.com/ygrebnov/batches/internal/remote"
	"github.com/ygrebnov/batches/metrics"
	"github.com/ygrebnov/batches/pool"
)

// queryTimeoutFactor bounds a single query to a multiple of the configured maximum latency.
const queryTimeoutFactor = 4

type batchSummary struct {
	Name     string
	Queries  int
	Failed   int
	Slowest  time.Duration
	Elapsed  time.Duration
	Failures []string
}

type report struct {
	Batches      []batchSummary
	Workers      map[string]int
	ChecksOK     int
	ChecksShed   int
	Interrupted  bool
	TotalElapsed time.Duration
}

type fanout struct {
	cfg      *config.Config
	log      *zap.Logger
	pool     *pool.Pool
	metrics  metrics.Provider
	progress io.Writer
	seed     uint64
}

func newPool(cfg *config.PoolConfig, log *zap.Logger, mp metrics.Provider) (*pool.Pool, error) {
	opts := []pool.Option{pool.WithLogger(log), pool.WithMetrics(mp)}
	if cfg.RateLimited() {
		opts = append(opts, pool.WithRateLimit(cfg.RateLimit.PerSecond, cfg.RateLimit.Burst))
	}
	return pool.New(cfg.MinWorkers, cfg.MaxWorkers, *cfg.QueueCapacity, cfg.NamePrefix, opts...)
}

// run sends a health check per host through the admission gate, then fans the queries out as
// concurrent batches on the shared pool.
func (f *fanout) run(ctx context.Context) (*report, error) {
	started := time.Now()
	qc := f.cfg.Queries
	rep := &report{Workers: make(map[string]int)}

	rep.ChecksOK, rep.ChecksShed = f.checkHosts(ctx, hostCount(f.cfg))

	bar := progressbar.NewOptions(qc.Count*qc.Batches,
		progressbar.OptionSetWriter(f.progress),
		progressbar.OptionSetDescription("querying"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	var mu sync.Mutex
	rep.Batches = make([]batchSummary, qc.Batches)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < qc.Batches; i++ {
		g.Go(func() error {
			s, workers, err := f.runBatch(gctx, i, bar)
			mu.Lock()
			defer mu.Unlock()
			rep.Batches[i] = s
			for w, n := range workers {
				rep.Workers[w] += n
			}
			return err
		})
	}
	err := g.Wait()
	_ = bar.Finish()
	rep.TotalElapsed = time.Since(started)

	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		rep.Interrupted = true
		return rep, nil
	}
	return rep, err
}

func (f *fanout) runBatch(ctx context.Context, i int, bar *progressbar.ProgressBar) (batchSummary, map[string]int, error) {
	qc := f.cfg.Queries
	name := fmt.Sprintf("batch-%d", i+1)
	s := batchSummary{Name: name}
	workers := make(map[string]int)

	b, err := batches.NewBatch[remote.Result](f.pool,
		batches.WithName(name),
		batches.WithLogger(f.log),
		batches.WithMetrics(f.metrics),
		batches.WithErrorTagging(),
	)
	if err != nil {
		return s, workers, err
	}

	sim := remote.NewSimulator(remote.Settings{
		MinLatency:  qc.MinLatency,
		MaxLatency:  qc.MaxLatency,
		FailureRate: qc.FailureRate,
		Timeout:     queryTimeoutFactor * qc.MaxLatency,
	}, f.seed+uint64(i))

	started := time.Now()
	for _, q := range remote.Queries(name, hostCount(f.cfg), qc.Count) {
		if err = b.SubmitContext(ctx, sim.Task(q)); err != nil {
			return s, workers, err
		}
	}
	_ = b.Close()
	s.Queries = b.Len()

	err = b.DrainEach(ctx, func(o batches.Outcome[remote.Result]) error {
		_ = bar.Add(1)
		if o.Worker != "" {
			workers[o.Worker]++
		}
		if o.Failed() {
			s.Failed++
			idx, _ := batches.ExtractTaskIndex(o.Err)
			s.Failures = append(s.Failures, fmt.Sprintf("#%d %v", idx, o.Err))
			return nil
		}
		s.Slowest = max(s.Slowest, o.Value.Latency)
		return nil
	})
	s.Elapsed = time.Since(started)
	sort.Strings(s.Failures)

	f.log.Info("batch finished",
		zap.String("batch", name),
		zap.Int("queries", s.Queries),
		zap.Int("failed", s.Failed),
		zap.Duration("elapsed", s.Elapsed),
	)
	return s, workers, err
}

// checkHosts sends one health check per host, plus one per worker, through Submit.
// Checks hold their worker until every check was offered, so the admission gate
// sheds whatever exceeds the pool capacity.
func (f *fanout) checkHosts(ctx context.Context, hosts int) (accepted, shed int) {
	release := make(chan struct{})
	var wg sync.WaitGroup
	for h := 1; h <= hosts+f.cfg.Pool.MaxWorkers; h++ {
		wg.Add(1)
		err := f.pool.SubmitContext(ctx, func(ctx context.Context) {
			defer wg.Done()
			select {
			case <-release:
			case <-ctx.Done():
			}
		})
		if err != nil {
			wg.Done()
			if !errors.Is(err, pool.ErrPoolFull) {
				f.log.Warn("health check refused", zap.Int("check", h), zap.Error(err))
			}
			shed++
			continue
		}
		accepted++
	}
	close(release)
	wg.Wait()
	f.log.Debug("health checks done", zap.Int("accepted", accepted), zap.Int("shed", shed))
	return accepted, shed
}

// hostCount spreads the queries over as many simulated hosts as the pool may hold at once.
func hostCount(cfg *config.Config) int {
	return cfg.Pool.MaxWorkers + *cfg.Pool.QueueCapacity
}
