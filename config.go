package batches

import (
	"github.com/ygrebnov/errorc"
	"go.uber.org/zap"

	"github.com/ygrebnov/batches/metrics"
)

// config holds Batch settings.
type config struct {
	// Name identifies the batch in logs and tagged errors.
	// Default: "batch".
	Name string

	// Logger records failed outcomes at warn level and drain lifecycle at debug level.
	// Default: zap.NewNop().
	Logger *zap.Logger

	// Metrics receives batch instruments.
	// Default: metrics.NoopProvider.
	Metrics metrics.Provider

	// ErrorTagging wraps task errors with the batch name and submission index.
	// Default: false.
	ErrorTagging bool

	// Expected closes the batch once that many tasks were submitted.
	// Default: 0 (close explicitly with Batch.Close).
	Expected int
}

func defaultConfig() config {
	return config{
		Name:    "batch",
		Logger:  zap.NewNop(),
		Metrics: metrics.NewNoopProvider(),
	}
}

// Option configures a Batch.
type Option func(*config) error

// WithName names the batch.
func WithName(name string) Option {
	return func(cfg *config) error {
		if name == "" {
			return errorc.With(ErrInvalidConfig, errorc.String("", "WithName requires a non-empty name"))
		}
		cfg.Name = name
		return nil
	}
}

// WithLogger sets the batch logger.
func WithLogger(l *zap.Logger) Option {
	return func(cfg *config) error {
		if l == nil {
			return errorc.With(ErrInvalidConfig, errorc.String("", "WithLogger requires a non-nil logger"))
		}
		cfg.Logger = l
		return nil
	}
}

// WithMetrics sets the metrics provider.
func WithMetrics(p metrics.Provider) Option {
	return func(cfg *config) error {
		if p == nil {
			return errorc.With(ErrInvalidConfig, errorc.String("", "WithMetrics requires a non-nil provider"))
		}
		cfg.Metrics = p
		return nil
	}
}

// WithErrorTagging wraps every task error with the batch name and submission index.
// Use ExtractTaskIndex or errors.As with TaskMetaError to read them back.
func WithErrorTagging() Option {
	return func(cfg *config) error { cfg.ErrorTagging = true; return nil }
}

// WithExpected fixes the batch size: the batch closes itself after n submissions.
func WithExpected(n int) Option {
	return func(cfg *config) error {
		if n <= 0 {
			return errorc.With(ErrInvalidConfig, errorc.String("", "WithExpected requires n > 0"))
		}
		cfg.Expected = n
		return nil
	}
}

func buildConfig(opts []Option) (config, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}
