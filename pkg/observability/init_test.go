package observability_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/sensortrend/pkg/observability"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := observability.DefaultConfig()

	assert.Equal(t, "sensortrend", cfg.ServiceName)
	assert.Equal(t, observability.ModeCLI, cfg.Mode)
	assert.Equal(t, 5, cfg.ShutdownTimeoutSec)
	assert.Empty(t, cfg.OTLPEndpoint)
	assert.Empty(t, cfg.MetricsTextfile)
}

func TestInit_NoopWhenNothingConfigured(t *testing.T) {
	t.Parallel()

	providers, err := observability.Init(observability.DefaultConfig())
	require.NoError(t, err)

	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.Meter)
	assert.NotNil(t, providers.Logger)

	_, span := providers.Tracer.Start(context.Background(), "dataset")
	span.End()

	require.NoError(t, providers.Shutdown(context.Background()))
}

func TestInit_WritesMetricsTextfile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "sensortrend.prom")

	cfg := observability.DefaultConfig()
	cfg.MetricsTextfile = path
	cfg.ServiceVersion = "1.0.0"

	providers, err := observability.Init(cfg)
	require.NoError(t, err)

	pm, err := observability.NewPipelineMetrics(providers.Meter)
	require.NoError(t, err)

	ctx := context.Background()
	pm.RecordDataset(ctx, observability.StatusOK)
	pm.RecordStage(ctx, observability.StageLoad, 20*time.Millisecond)

	require.NoError(t, providers.Shutdown(ctx))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "sensortrend_datasets")
	assert.Contains(t, string(data), "sensortrend_stage_duration")
}

func TestParseOTLPHeaders(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		raw      string
		expected map[string]string
	}{
		{name: "empty", raw: "", expected: nil},
		{name: "single", raw: "api-key=secret", expected: map[string]string{"api-key": "secret"}},
		{name: "multiple_spaced", raw: " a = 1 , b=2", expected: map[string]string{"a": "1", "b": "2"}},
		{name: "invalid_only", raw: "novalue", expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, observability.ParseOTLPHeaders(tt.raw))
		})
	}
}
