package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDescribe(t *testing.T) {
	t.Parallel()

	t.Run("empty", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, Distribution{}, Describe(nil))
	})

	t.Run("unsorted_input", func(t *testing.T) {
		t.Parallel()

		samples := []float64{0.9, 0.1, 0.5, 0.3, 0.7}
		got := Describe(samples)

		assert.InDelta(t, 0.1, got.Min, 1e-12)
		assert.InDelta(t, 0.9, got.Max, 1e-12)
		assert.InDelta(t, 0.5, got.Median, 1e-12)
		assert.InDelta(t, 0.86, got.P95, 1e-12)
		assert.Equal(t, []float64{0.9, 0.1, 0.5, 0.3, 0.7}, samples, "input must not be reordered")
	})
}

func TestPercentile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		values   []float64
		p        float64
		expected float64
	}{
		{name: "empty", values: nil, p: 0.5, expected: 0},
		{name: "single", values: []float64{4}, p: 0.95, expected: 4},
		{name: "median_even", values: []float64{4, 1, 3, 2}, p: PercentileMedian, expected: 2.5},
		{name: "lowest", values: []float64{4, 1, 3, 2}, p: 0, expected: 1},
		{name: "highest", values: []float64{4, 1, 3, 2}, p: 1, expected: 4},
		{name: "p_above_one_clamped", values: []float64{4, 1, 3, 2}, p: 2, expected: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.InDelta(t, tt.expected, Percentile(tt.values, tt.p), 1e-12)
		})
	}
}

func TestClamp(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 0.0, Clamp(-1.0, 0, 1), 1e-12)
	assert.InDelta(t, 1.0, Clamp(3.0, 0, 1), 1e-12)
	assert.Equal(t, 5, Clamp(5, 0, 10))
}

func TestSmooth(t *testing.T) {
	t.Parallel()

	assert.Nil(t, Smooth(nil, 0.3))

	// 10, then 0.3*20 + 0.7*10 = 13, then 0.3*20 + 0.7*13 = 15.1.
	assert.InDeltaSlice(t, []float64{10, 13, 15.1}, Smooth([]float64{10, 20, 20}, 0.3), 1e-9)

	// alpha = 1 tracks the input exactly.
	assert.InDeltaSlice(t, []float64{1, 5, 2}, Smooth([]float64{1, 5, 2}, 1), 1e-12)
}
