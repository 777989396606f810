package metrics

import (
	"sync"
	"sync/atomic"
)

// BasicProvider keeps every instrument in memory. It is safe for concurrent use.
// Instruments are created on first request and reused by name afterwards.
type BasicProvider struct {
	mu         sync.RWMutex
	counters   map[string]*BasicCounter
	updowns    map[string]*BasicUpDownCounter
	histograms map[string]*BasicHistogram
	configs    map[string]InstrumentConfig
}

// NewBasicProvider constructs an empty BasicProvider.
func NewBasicProvider() *BasicProvider {
	return &BasicProvider{
		counters:   make(map[string]*BasicCounter),
		updowns:    make(map[string]*BasicUpDownCounter),
		histograms: make(map[string]*BasicHistogram),
		configs:    make(map[string]InstrumentConfig),
	}
}

// instrument returns m[name], creating it with mk under the write lock when absent.
func instrument[T any](p *BasicProvider, m map[string]T, name string, opts []InstrumentOption, mk func() T) T {
	p.mu.RLock()
	v, ok := m[name]
	p.mu.RUnlock()
	if ok {
		return v
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if v, ok = m[name]; ok {
		return v
	}
	p.configs[name] = buildConfig(opts)
	v = mk()
	m[name] = v
	return v
}

// Counter returns the monotonic counter registered under name.
func (p *BasicProvider) Counter(name string, opts ...InstrumentOption) Counter {
	return instrument(p, p.counters, name, opts, func() *BasicCounter { return &BasicCounter{} })
}

// UpDownCounter returns the up/down counter registered under name.
func (p *BasicProvider) UpDownCounter(name string, opts ...InstrumentOption) UpDownCounter {
	return instrument(p, p.updowns, name, opts, func() *BasicUpDownCounter { return &BasicUpDownCounter{} })
}

// Histogram returns the histogram registered under name.
func (p *BasicProvider) Histogram(name string, opts ...InstrumentOption) Histogram {
	return instrument(p, p.histograms, name, opts, func() *BasicHistogram { return &BasicHistogram{} })
}

// Config returns the options the instrument called name was created with.
func (p *BasicProvider) Config(name string) (InstrumentConfig, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	cfg, ok := p.configs[name]
	return cfg, ok
}

// CounterValue is a shortcut for reading a counter snapshot; unknown names read as zero.
func (p *BasicProvider) CounterValue(name string) int64 {
	p.mu.RLock()
	c, ok := p.counters[name]
	p.mu.RUnlock()
	if !ok {
		return 0
	}
	return c.Snapshot()
}

// BasicCounter is a monotonic counter.
type BasicCounter struct {
	val atomic.Int64
}

func (c *BasicCounter) Add(n int64) { c.val.Add(n) }

// Snapshot returns the current value.
func (c *BasicCounter) Snapshot() int64 { return c.val.Load() }

// BasicUpDownCounter is a counter that may go down.
type BasicUpDownCounter struct {
	val atomic.Int64
}

func (u *BasicUpDownCounter) Add(n int64) { u.val.Add(n) }

// Snapshot returns the current value.
func (u *BasicUpDownCounter) Snapshot() int64 { return u.val.Load() }

// BasicHistogram aggregates count, sum, min and max. No buckets are kept.
type BasicHistogram struct {
	mu    sync.Mutex
	count int64
	sum   float64
	min   float64
	max   float64
}

func (h *BasicHistogram) Record(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.count == 0 || v < h.min {
		h.min = v
	}
	if h.count == 0 || v > h.max {
		h.max = v
	}
	h.count++
	h.sum += v
}

// HistSnapshot is a point-in-time copy of a BasicHistogram.
type HistSnapshot struct {
	Count int64
	Sum   float64
	Min   float64
	Max   float64
	Mean  float64
}

// Snapshot copies the histogram state.
func (h *BasicHistogram) Snapshot() HistSnapshot {
	h.mu.Lock()
	s := HistSnapshot{Count: h.count, Sum: h.sum, Min: h.min, Max: h.max}
	h.mu.Unlock()
	if s.Count > 0 {
		s.Mean = s.Sum / float64(s.Count)
	}
	return s
}
