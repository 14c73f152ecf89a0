package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/sensortrend/pkg/alg/stats"
	"github.com/Sumatoshi-tech/sensortrend/pkg/anomaly"
	"github.com/Sumatoshi-tech/sensortrend/pkg/loader"
	"github.com/Sumatoshi-tech/sensortrend/pkg/pipeline"
)

var testSettings = Settings{MinVal: 1, MaxVal: 99, AnomalyThreshold: 0.9, WindowSize: 2}

func sampleResults() []pipeline.Result {
	return []pipeline.Result{
		{
			Source: "small_sensor_data_2024.csv",
			Summary: stats.Summary{
				Count:    4,
				Mean:     0.123456789,
				Variance: 0.01,
				StdDev:   0.1,
				Trend:    stats.TrendIncreasing,
				Windows:  stats.TrendCounts{Windows: 3, Increasing: 2},
			},
			Anomalies:    1234,
			Spikes:       []anomaly.Spike{{Index: 3, Value: 0.95, ZScore: 4}},
			Distribution: stats.Distribution{Min: 0, Max: 0.95, Median: 0.1, P95: 0.9},
			WindowMeans:  []float64{0.1, 0.2, 0.3},
			Rows:         loader.RowStats{Total: 5, Accepted: 4, Missing: 1},
			Timings:      pipelineTimings(2*time.Millisecond, time.Millisecond),
		},
		{
			Source: "missing.csv",
			Err:    errors.New("missing.csv: source unavailable"),
		},
	}
}

// pipelineTimings builds pipeline timings from load and compute durations.
func pipelineTimings(load, compute time.Duration) pipeline.Timings {
	return pipeline.Timings{Load: load, Compute: compute, Total: load + compute}
}

func TestNew_MapsResults(t *testing.T) {
	t.Parallel()

	rep := New(testSettings, sampleResults())
	require.Len(t, rep.Datasets, 2)

	ok := rep.Datasets[0]
	assert.Equal(t, StatusOK, ok.Status)
	assert.Equal(t, 4, ok.Count)
	assert.Equal(t, 1, ok.Spikes)
	assert.Equal(t, 1234, ok.Anomalies)
	assert.InDelta(t, 3.0, ok.Timings.TotalMS, 1e-9)
	require.NotNil(t, ok.Distribution)
	assert.InDelta(t, 0.95, ok.Distribution.Max, 1e-12)

	failed := rep.Datasets[1]
	assert.Equal(t, StatusError, failed.Status)
	assert.Contains(t, failed.Error, "source unavailable")
	assert.Nil(t, failed.Distribution)
	assert.Empty(t, failed.Trend)
}

func TestWriteText(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	require.NoError(t, Write(&buf, FormatText, New(testSettings, sampleResults()), Options{NoColor: true}))

	out := buf.String()
	assert.Contains(t, out, "small_sensor_data_2024.csv")
	assert.Contains(t, out, "0.12346")
	assert.Contains(t, out, "0.01000")
	assert.Contains(t, out, "increasing")
	assert.Contains(t, out, "1,234")
	assert.Contains(t, out, "2.000 ms")
	assert.Contains(t, out, "missing.csv")
	assert.Contains(t, out, "source unavailable")
	assert.NotContains(t, out, "\x1b[")
}

func TestWriteText_LongSourceNotWrapped(t *testing.T) {
	t.Parallel()

	const source = "/data/sensors/2024/some_long_directory_name/medium_sensor_data_2024.csv"

	results := sampleResults()
	results[0].Source = source
	results[1].Source = source + ".missing"

	var buf bytes.Buffer

	require.NoError(t, WriteText(&buf, New(testSettings, results), Options{NoColor: true}))

	lines := strings.Split(buf.String(), "\n")
	assert.Equal(t, source, lines[0])
	assert.Contains(t, buf.String(), "\n"+source+".missing\n")
}

func TestWriteJSON_MatchesSchema(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	require.NoError(t, Write(&buf, FormatJSON, New(testSettings, sampleResults()), Options{}))

	var decoded map[string]any

	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Contains(t, decoded, "settings")

	violations, err := ValidateJSON(buf.Bytes())
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestWriteYAML(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	require.NoError(t, Write(&buf, FormatYAML, New(testSettings, sampleResults()), Options{}))

	var decoded Report

	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded.Datasets, 2)
	assert.Equal(t, stats.TrendIncreasing, decoded.Datasets[0].Trend)
	assert.Equal(t, 2, decoded.Settings.WindowSize)
}

func TestWritePlot(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	require.NoError(t, Write(&buf, FormatPlot, New(testSettings, sampleResults()), Options{}))

	out := buf.String()
	assert.True(t, strings.Contains(out, "<html") || strings.Contains(out, "<!DOCTYPE"))
	assert.Contains(t, out, "Window mean")
	assert.Contains(t, out, "Anomaly threshold")
}

func TestWrite_UnknownFormat(t *testing.T) {
	t.Parallel()

	err := Write(&bytes.Buffer{}, "xml", &Report{}, Options{})
	require.ErrorIs(t, err, ErrUnknownFormat)
	require.ErrorIs(t, ValidateFormat("xml"), ErrUnknownFormat)

	for _, format := range Formats() {
		assert.NoError(t, ValidateFormat(format))
	}
}

func TestValidateJSON_Violations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		doc  string
	}{
		{"missing datasets", `{"settings": {"min_val": 1, "max_val": 99, "anomaly_threshold": 0.9, "window_size": 100}}`},
		{"negative variance", `{"settings": {"min_val": 1, "max_val": 99, "anomaly_threshold": 0.9, "window_size": 100},
			"datasets": [{"source": "a", "status": "ok", "count": 1, "mean": 0.5, "variance": -1, "std_dev": 0,
			"anomalies": 0, "rows": {}, "timings": {"load_ms": 0, "compute_ms": 0, "total_ms": 0}}]}`},
		{"unknown trend", `{"settings": {"min_val": 1, "max_val": 99, "anomaly_threshold": 0.9, "window_size": 100},
			"datasets": [{"source": "a", "status": "ok", "count": 1, "mean": 0.5, "variance": 0, "std_dev": 0,
			"trend": "sideways", "anomalies": 0, "rows": {}, "timings": {"load_ms": 0, "compute_ms": 0, "total_ms": 0}}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			violations, err := ValidateJSON([]byte(tt.doc))
			require.ErrorIs(t, err, ErrSchemaViolation)
			assert.NotEmpty(t, violations)
		})
	}
}

func TestValidateJSON_NotJSON(t *testing.T) {
	t.Parallel()

	_, err := ValidateJSON([]byte("{not json"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSchemaViolation)
}
