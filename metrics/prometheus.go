package metrics

import (
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusProvider exposes instruments as Prometheus collectors registered on reg.
// Counters map to prometheus.Counter, up/down counters to prometheus.Gauge and
// histograms to prometheus.Histogram with the default buckets.
type PrometheusProvider struct {
	reg       prometheus.Registerer
	namespace string

	mu         sync.Mutex
	counters   map[string]Counter
	gauges     map[string]UpDownCounter
	histograms map[string]Histogram
}

// NewPrometheusProvider returns a provider registering on reg. A nil reg means prometheus.DefaultRegisterer.
func NewPrometheusProvider(reg prometheus.Registerer, namespace string) *PrometheusProvider {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &PrometheusProvider{
		reg:        reg,
		namespace:  namespace,
		counters:   make(map[string]Counter),
		gauges:     make(map[string]UpDownCounter),
		histograms: make(map[string]Histogram),
	}
}

// Counter returns the counter registered under name, creating and registering it on
// first use. Options only apply on creation.
func (p *PrometheusProvider) Counter(name string, opts ...InstrumentOption) Counter {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.counters[name]; ok {
		return c
	}
	cfg := buildConfig(opts)
	c := register(p.reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   p.namespace,
		Name:        name,
		Help:        help(name, cfg),
		ConstLabels: cfg.Labels,
	}))
	ic := promCounter{c}
	p.counters[name] = ic
	return ic
}

// UpDownCounter returns a gauge-backed counter for name, registered on first use.
func (p *PrometheusProvider) UpDownCounter(name string, opts ...InstrumentOption) UpDownCounter {
	p.mu.Lock()
	defer p.mu.Unlock()
	if g, ok := p.gauges[name]; ok {
		return g
	}
	cfg := buildConfig(opts)
	g := register(p.reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   p.namespace,
		Name:        name,
		Help:        help(name, cfg),
		ConstLabels: cfg.Labels,
	}))
	ig := promGauge{g}
	p.gauges[name] = ig
	return ig
}

// Histogram returns the histogram for name with prometheus.DefBuckets, registered on first use.
func (p *PrometheusProvider) Histogram(name string, opts ...InstrumentOption) Histogram {
	p.mu.Lock()
	defer p.mu.Unlock()
	if h, ok := p.histograms[name]; ok {
		return h
	}
	cfg := buildConfig(opts)
	h := register(p.reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace:   p.namespace,
		Name:        name,
		Help:        help(name, cfg),
		ConstLabels: cfg.Labels,
		Buckets:     prometheus.DefBuckets,
	}))
	ih := promHistogram{h}
	p.histograms[name] = ih
	return ih
}

// register registers c, falling back to the already registered collector of the same description.
// Any other registration failure panics, as prometheus.MustRegister does.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	err := reg.Register(c)
	if err == nil {
		return c
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(C); ok {
			return existing
		}
	}
	panic(err)
}

func help(name string, cfg InstrumentConfig) string {
	if cfg.Description != "" {
		return cfg.Description
	}
	return name
}

type promCounter struct{ c prometheus.Counter }

func (p promCounter) Add(n int64) {
	if n > 0 {
		p.c.Add(float64(n))
	}
}

type promGauge struct{ g prometheus.Gauge }

func (p promGauge) Add(n int64) { p.g.Add(float64(n)) }

type promHistogram struct{ h prometheus.Histogram }

func (p promHistogram) Record(v float64) { p.h.Observe(v) }
