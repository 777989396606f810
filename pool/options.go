package pool

import (
	"fmt"

	"github.com/ygrebnov/errorc"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ygrebnov/batches/metrics"
)

// config holds the optional pool settings. Sizes are positional arguments of New.
type config struct {
	// NameFunc names worker number seq (1-based) given the pool prefix.
	// Default: "<prefix>-<seq>".
	NameFunc func(prefix string, seq int) string

	// Limiter, when set, is waited on by a worker before each unit runs.
	// Default: nil (no rate limit).
	Limiter *rate.Limiter

	// Logger receives worker lifecycle and failure records.
	// Default: zap.NewNop().
	Logger *zap.Logger

	// Metrics receives pool instruments.
	// Default: metrics.NoopProvider.
	Metrics metrics.Provider
}

func defaultConfig() config {
	return config{
		NameFunc: defaultName,
		Logger:   zap.NewNop(),
		Metrics:  metrics.NewNoopProvider(),
	}
}

func defaultName(prefix string, seq int) string {
	return fmt.Sprintf("%s-%d", prefix, seq)
}

// Option configures a Pool.
type Option func(*config) error

// WithNameFunc replaces the worker naming scheme.
func WithNameFunc(fn func(prefix string, seq int) string) Option {
	return func(cfg *config) error {
		if fn == nil {
			return errorc.With(ErrInvalidConfig, errorc.String("", "WithNameFunc requires a non-nil function"))
		}
		cfg.NameFunc = fn
		return nil
	}
}

// WithRateLimit caps the pool-wide unit start rate at perSecond with the given burst.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(cfg *config) error {
		if perSecond <= 0 || burst <= 0 {
			return errorc.With(ErrInvalidConfig, errorc.String("", "WithRateLimit requires perSecond > 0 and burst > 0"))
		}
		cfg.Limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
		return nil
	}
}

// WithLogger sets the pool logger.
func WithLogger(l *zap.Logger) Option {
	return func(cfg *config) error {
		if l != nil {
			cfg.Logger = l
		}
		return nil
	}
}

// WithMetrics sets the metrics provider.
func WithMetrics(p metrics.Provider) Option {
	return func(cfg *config) error {
		if p != nil {
			cfg.Metrics = p
		}
		return nil
	}
}
