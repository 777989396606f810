// Command fanout runs simulated remote queries as concurrent batches on one
// shared worker pool and prints what came back, in the order it came back.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/ygrebnov/batches/internal/config"
	"github.com/ygrebnov/batches/internal/logging"
	"github.com/ygrebnov/batches/metrics"
)

var (
	configFile  string
	debug       bool
	queries     int
	batchCount  int
	seed        uint64
	versionFlag bool
)

var version = "dev"
var commit = ""

const shutdownTimeout = 10 * time.Second

func main() {
	pflag.StringVarP(&configFile, "config", "c", "", "config file path")
	pflag.BoolVarP(&debug, "debug", "d", false, "set log level to DEBUG")
	pflag.IntVarP(&queries, "queries", "n", 0, "queries per batch, overrides the config file")
	pflag.IntVarP(&batchCount, "batches", "b", 0, "concurrent batches, overrides the config file")
	pflag.Uint64Var(&seed, "seed", uint64(time.Now().UnixNano()), "latency and failure seed")
	pflag.BoolVarP(&versionFlag, "version", "v", false, "print version")
	pflag.Parse()

	if versionFlag {
		fmt.Println(version + "-" + commit)
		return
	}

	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fanout:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.New(configFile)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	if queries > 0 {
		cfg.Queries.Count = queries
	}
	if batchCount > 0 {
		cfg.Queries.Batches = batchCount
	}
	if debug {
		cfg.Log.Level = "debug"
	}

	log, err := logging.New(*cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	if b, err := json.Marshal(cfg); err == nil {
		log.Debug("read config", zap.ByteString("config", b))
	}
	log.Info("fanout bootstrap", zap.String("version", version), zap.String("commit", commit))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	mp := metrics.NewPrometheusProvider(reg, "fanout")
	if cfg.Prometheus.Address != "" {
		srv := serveMetrics(cfg.Prometheus.Address, reg, log)
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = srv.Shutdown(sctx)
		}()
	}

	p, err := newPool(cfg.Pool, log, mp)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := p.Shutdown(sctx); err != nil {
			log.Warn("pool did not drain in time", zap.Error(err))
		}
	}()

	f := &fanout{cfg: cfg, log: log, pool: p, metrics: mp, progress: os.Stderr, seed: seed}
	rep, err := f.run(ctx)
	if rep != nil {
		renderReport(os.Stdout, rep)
	}
	return err
}

func metricsRouter(reg *prometheus.Registry) *mux.Router {
	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	return router
}

// serveMetrics exposes reg on /metrics in the background.
func serveMetrics(addr string, reg *prometheus.Registry, log *zap.Logger) *http.Server {
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	srv := &http.Server{
		Addr:         addr,
		Handler:      metricsRouter(reg),
		ReadTimeout:  time.Minute,
		WriteTimeout: time.Minute,
	}
	go func() {
		log.Info("metrics server started", zap.String("address", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server stopped", zap.Error(err))
		}
	}()
	return srv
}
