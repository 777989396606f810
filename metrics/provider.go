// Package metrics defines the instrument abstraction used by the pool and batches packages.
//
// Three providers are shipped: BasicProvider (in-memory, for tests and small tools),
// NoopProvider (the default) and PrometheusProvider (registers collectors on a
// prometheus.Registerer).
package metrics

// Provider constructs named instruments. Asking twice for the same name returns the same instrument.
// Implementations must be safe for concurrent use.
type Provider interface {
	Counter(name string, opts ...InstrumentOption) Counter
	UpDownCounter(name string, opts ...InstrumentOption) UpDownCounter
	Histogram(name string, opts ...InstrumentOption) Histogram
}

// Counter records monotonic counts.
type Counter interface {
	Add(n int64)
}

// UpDownCounter records a value that moves both ways, e.g. units in flight.
type UpDownCounter interface {
	Add(n int64)
}

// Histogram records a distribution of float64 measurements, e.g. durations in seconds.
type Histogram interface {
	Record(v float64)
}

// InstrumentConfig carries optional instrument metadata.
type InstrumentConfig struct {
	Description string
	Unit        string
	// Labels are constant label pairs attached to the instrument. Keep cardinality bounded.
	Labels map[string]string
}

// InstrumentOption mutates InstrumentConfig.
type InstrumentOption func(*InstrumentConfig)

// WithDescription sets the instrument help text.
func WithDescription(desc string) InstrumentOption {
	return func(c *InstrumentConfig) { c.Description = desc }
}

// WithUnit sets an advisory unit, e.g. "1" or "seconds".
func WithUnit(unit string) InstrumentOption {
	return func(c *InstrumentConfig) { c.Unit = unit }
}

// WithLabels attaches constant labels to the instrument.
func WithLabels(labels map[string]string) InstrumentOption {
	return func(c *InstrumentConfig) {
		if len(labels) == 0 {
			return
		}
		if c.Labels == nil {
			c.Labels = make(map[string]string, len(labels))
		}
		for k, v := range labels {
			c.Labels[k] = v
		}
	}
}

func buildConfig(opts []InstrumentOption) InstrumentConfig {
	var cfg InstrumentConfig
	for _, o := range opts {
		if o != nil {
			o(&cfg)
		}
	}
	return cfg
}
