// Package config loads the fanout tool configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v2"

	"github.com/ygrebnov/batches/internal/logging"
)

type Config struct {
	Pool       *PoolConfig     `yaml:"pool,omitempty" json:"pool,omitempty"`
	Log        *logging.Config `yaml:"log,omitempty" json:"log,omitempty"`
	Prometheus *PromConfig     `yaml:"prometheus,omitempty" json:"prometheus,omitempty"`
	Queries    *QueryConfig    `yaml:"queries,omitempty" json:"queries,omitempty"`
}

// PoolConfig sizes the worker pool. QueueCapacity is a pointer so that an explicit
// zero (no queueing beyond the busy workers) is kept rather than defaulted.
type PoolConfig struct {
	MinWorkers    int              `yaml:"min-workers,omitempty" json:"min-workers,omitempty"`
	MaxWorkers    int              `yaml:"max-workers,omitempty" json:"max-workers,omitempty"`
	QueueCapacity *int             `yaml:"queue-capacity,omitempty" json:"queue-capacity,omitempty"`
	NamePrefix    string           `yaml:"name-prefix,omitempty" json:"name-prefix,omitempty"`
	RateLimit     *RateLimitConfig `yaml:"rate-limit,omitempty" json:"rate-limit,omitempty"`
}

// RateLimitConfig paces unit starts across all workers. A zero PerSecond disables it.
type RateLimitConfig struct {
	PerSecond float64 `yaml:"per-second,omitempty" json:"per-second,omitempty"`
	Burst     int     `yaml:"burst,omitempty" json:"burst,omitempty"`
}

// PromConfig enables the /metrics endpoint when Address is set.
type PromConfig struct {
	Address string `yaml:"address,omitempty" json:"address,omitempty"`
}

// QueryConfig shapes the simulated remote queries.
type QueryConfig struct {
	Count       int           `yaml:"count,omitempty" json:"count,omitempty"`
	Batches     int           `yaml:"batches,omitempty" json:"batches,omitempty"`
	MinLatency  time.Duration `yaml:"min-latency,omitempty" json:"min-latency,omitempty"`
	MaxLatency  time.Duration `yaml:"max-latency,omitempty" json:"max-latency,omitempty"`
	FailureRate float64       `yaml:"failure-rate,omitempty" json:"failure-rate,omitempty"`
}

// New reads the YAML file at path (a leading ~ is expanded) and fills in defaults.
// An empty path yields the defaults.
func New(file string) (*Config, error) {
	c := new(Config)
	if file != "" {
		path, err := homedir.Expand(file)
		if err != nil {
			return nil, err
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err = yaml.Unmarshal(b, c); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	err := c.validateSetDefaults()
	return c, err
}

func (c *Config) validateSetDefaults() error {
	if c.Pool == nil {
		c.Pool = &PoolConfig{}
	}
	if err := c.Pool.validateSetDefaults(); err != nil {
		return err
	}

	if c.Log == nil {
		c.Log = &logging.Config{}
	}
	if err := validateSetLogDefaults(c.Log); err != nil {
		return err
	}

	if c.Prometheus == nil {
		c.Prometheus = &PromConfig{}
	}

	if c.Queries == nil {
		c.Queries = &QueryConfig{}
	}
	return c.Queries.validateSetDefaults()
}

func (p *PoolConfig) validateSetDefaults() error {
	if p.MaxWorkers == 0 {
		p.MaxWorkers = defaultMaxWorkers
	}
	if p.MinWorkers == 0 {
		p.MinWorkers = min(defaultMinWorkers, p.MaxWorkers)
	}
	if p.MinWorkers < 1 || p.MinWorkers > p.MaxWorkers {
		return fmt.Errorf("pool: min-workers must be in [1, max-workers], got %d (max-workers %d)", p.MinWorkers, p.MaxWorkers)
	}
	if p.QueueCapacity == nil {
		qc := defaultQueueCapacity
		p.QueueCapacity = &qc
	}
	if *p.QueueCapacity < 0 {
		return fmt.Errorf("pool: queue-capacity must not be negative, got %d", *p.QueueCapacity)
	}
	if p.NamePrefix == "" {
		p.NamePrefix = defaultNamePrefix
	}
	if rl := p.RateLimit; rl != nil {
		if rl.PerSecond < 0 {
			return errors.New("pool: rate-limit per-second must not be negative")
		}
		if rl.PerSecond > 0 && rl.Burst <= 0 {
			rl.Burst = 1
		}
	}
	return nil
}

// RateLimited reports whether a rate limit is configured.
func (p *PoolConfig) RateLimited() bool {
	return p.RateLimit != nil && p.RateLimit.PerSecond > 0
}

func validateSetLogDefaults(l *logging.Config) error {
	if l.Level == "" {
		l.Level = defaultLogLevel
	}
	if l.File != "" {
		path, err := homedir.Expand(l.File)
		if err != nil {
			return err
		}
		l.File = path
	}
	if l.MaxSize <= 0 {
		l.MaxSize = defaultLogMaxSize
	}
	if l.MaxBackups <= 0 {
		l.MaxBackups = defaultLogMaxBackups
	}
	if l.MaxAge <= 0 {
		l.MaxAge = defaultLogMaxAge
	}
	return nil
}

func (q *QueryConfig) validateSetDefaults() error {
	if q.Count == 0 {
		q.Count = defaultQueryCount
	}
	if q.Batches == 0 {
		q.Batches = defaultQueryBatches
	}
	if q.Count < 0 || q.Batches < 0 {
		return errors.New("queries: count and batches must be positive")
	}
	if q.MinLatency == 0 {
		q.MinLatency = defaultQueryMinLatency
	}
	if q.MaxLatency == 0 {
		q.MaxLatency = max(defaultQueryMaxLatency, q.MinLatency)
	}
	if q.MinLatency < 0 || q.MaxLatency < q.MinLatency {
		return fmt.Errorf("queries: invalid latency range [%s, %s]", q.MinLatency, q.MaxLatency)
	}
	if q.FailureRate < 0 || q.FailureRate > 1 {
		return fmt.Errorf("queries: failure-rate must be in [0, 1], got %v", q.FailureRate)
	}
	return nil
}
