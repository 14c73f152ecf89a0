package stats

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func normalize(raw ...float64) []float64 {
	out := make([]float64, len(raw))

	for i, v := range raw {
		out[i] = (v - 1.0) / 98.0
	}

	return out
}

func TestMoments(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		samples  []float64
		mean     float64
		variance float64
	}{
		{name: "single", samples: []float64{0.5}, mean: 0.5, variance: 0},
		{name: "two_points", samples: []float64{0, 1}, mean: 0.5, variance: 0.25},
		{name: "spread", samples: []float64{0.2, 0.4, 0.4, 0.4, 0.5, 0.5, 0.7, 0.9}, mean: 0.5, variance: 0.04},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			mean, variance, stddev, err := Moments(tt.samples)
			require.NoError(t, err)
			assert.InDelta(t, tt.mean, mean, 1e-12)
			assert.InDelta(t, tt.variance, variance, 1e-12)
			assert.InDelta(t, math.Sqrt(tt.variance), stddev, 1e-9)
		})
	}
}

func TestMoments_Empty(t *testing.T) {
	t.Parallel()

	_, _, _, err := Moments(nil)
	require.ErrorIs(t, err, ErrEmptyDataset)
}

func TestMoments_ConstantInputNeverNegative(t *testing.T) {
	t.Parallel()

	// Σx² - (Σx)²/n rounds below zero for this input.
	_, variance, stddev, err := Moments(normalize(10, 10, 10))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, variance, 0.0)
	assert.False(t, math.IsNaN(stddev))
}

func TestSummarize_IdenticalReadings(t *testing.T) {
	t.Parallel()

	summary, err := Summarize(normalize(10, 10, 10), 1)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Count)
	assert.InDelta(t, 9.0/98.0, summary.Mean, 1e-12)
	assert.InDelta(t, 0, summary.Variance, 1e-12)
	assert.InDelta(t, 0, summary.StdDev, 1e-8)
	assert.Equal(t, TrendStable, summary.Trend)
	assert.Equal(t, TrendCounts{Windows: 3}, summary.Windows)
}

func TestSummarize_MonotonicIncrease(t *testing.T) {
	t.Parallel()

	raw := make([]float64, 0, 98)
	for v := 1; v <= 99; v++ {
		raw = append(raw, float64(v))
	}

	summary, err := Summarize(normalize(raw...), 10)
	require.NoError(t, err)

	assert.Equal(t, TrendIncreasing, summary.Trend)
	assert.Equal(t, len(raw)-10, summary.Windows.Increasing)
	assert.Zero(t, summary.Windows.Decreasing)
}

func TestSummarize_Empty(t *testing.T) {
	t.Parallel()

	_, err := Summarize([]float64{}, DefaultWindowSize)
	require.ErrorIs(t, err, ErrEmptyDataset)
}

func TestSummarize_InvalidWindow(t *testing.T) {
	t.Parallel()

	_, err := Summarize([]float64{0.1}, 0)
	require.ErrorIs(t, err, ErrInvalidWindow)
}

func TestSummarize_OrderIndependentAggregates(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(7, 11))
	samples := make([]float64, 500)

	for i := range samples {
		samples[i] = rng.Float64()
	}

	shuffled := append([]float64(nil), samples...)
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	a, err := Summarize(samples, 25)
	require.NoError(t, err)

	b, err := Summarize(shuffled, 25)
	require.NoError(t, err)

	assert.InDelta(t, a.Mean, b.Mean, 1e-12)
	assert.InDelta(t, a.Variance, b.Variance, 1e-12)
	assert.InDelta(t, a.StdDev, b.StdDev, 1e-12)
	assert.GreaterOrEqual(t, a.Variance, 0.0)
}

func TestSummarize_Idempotent(t *testing.T) {
	t.Parallel()

	samples := normalize(5, 80, 12, 44, 90, 91, 3, 70)

	first, err := Summarize(samples, 3)
	require.NoError(t, err)

	second, err := Summarize(samples, 3)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
