package batches

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ygrebnov/batches/metrics"
)

func TestBuildConfig_Defaults(t *testing.T) {
	cfg, err := buildConfig(nil)
	require.NoError(t, err)
	require.Equal(t, "batch", cfg.Name)
	require.NotNil(t, cfg.Logger)
	require.IsType(t, metrics.NoopProvider{}, cfg.Metrics)
	require.False(t, cfg.ErrorTagging)
}

func TestBuildConfig_Options(t *testing.T) {
	logger := zap.NewExample()
	mp := metrics.NewBasicProvider()

	cfg, err := buildConfig([]Option{
		WithName("hosts"),
		WithLogger(logger),
		WithMetrics(mp),
		WithErrorTagging(),
		WithExpected(4),
		nil,
	})
	require.NoError(t, err)
	require.Equal(t, "hosts", cfg.Name)
	require.Same(t, logger, cfg.Logger)
	require.Same(t, mp, cfg.Metrics)
	require.True(t, cfg.ErrorTagging)
	require.Equal(t, 4, cfg.Expected)
}

func TestBuildConfig_InvalidOptions(t *testing.T) {
	tests := map[string]Option{
		"empty name":  WithName(""),
		"nil logger":  WithLogger(nil),
		"nil metrics": WithMetrics(nil),
		"zero size":   WithExpected(0),
	}
	for name, opt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := buildConfig([]Option{opt})
			require.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}
