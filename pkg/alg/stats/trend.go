package stats

import "fmt"

// Trend is the net direction of consecutive window means.
type Trend string

// Trend labels.
const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
)

// TrendCounts records how many window-to-window comparisons went up or down.
type TrendCounts struct {
	Windows    int `json:"windows"    yaml:"windows"`
	Increasing int `json:"increasing" yaml:"increasing"`
	Decreasing int `json:"decreasing" yaml:"decreasing"`
}

// Trend resolves the counts to a label. Ties, including 0 vs 0, are stable.
func (c TrendCounts) Trend() Trend {
	switch {
	case c.Increasing > c.Decreasing:
		return TrendIncreasing
	case c.Decreasing > c.Increasing:
		return TrendDecreasing
	default:
		return TrendStable
	}
}

// PrefixSums returns p where p[0] = 0 and p[i+1] = p[i] + samples[i].
func PrefixSums(samples []float64) []float64 {
	prefix := make([]float64, len(samples)+1)

	for i, x := range samples {
		prefix[i+1] = prefix[i] + x
	}

	return prefix
}

// WindowMeans returns the mean of every contiguous run of windowSize samples,
// in order. A sequence shorter than the window has no windows.
func WindowMeans(samples []float64, windowSize int) ([]float64, error) {
	if windowSize < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWindow, windowSize)
	}

	count := len(samples)
	if count < windowSize {
		return nil, nil
	}

	prefix := PrefixSums(samples)
	width := float64(windowSize)
	means := make([]float64, count-windowSize+1)

	for i := range means {
		means[i] = (prefix[i+windowSize] - prefix[i]) / width
	}

	return means, nil
}

// DetectTrend compares each window mean with the one immediately before it.
// The first window has no predecessor and counts toward neither direction.
//
// Consecutive windows share all but one sample, so mean[i] - mean[i-1] equals
// (samples[i+w-1] - samples[i-1]) / w. The comparison is made on those two
// samples: it gives the exact-arithmetic answer of WindowMeans without the
// rounding noise that prefix-sum subtraction adds on flat stretches. On flat
// data it can therefore differ from comparing WindowMeans values directly,
// which may report ulp-sized changes as increases or decreases.
func DetectTrend(samples []float64, windowSize int) (TrendCounts, error) {
	if windowSize < 1 {
		return TrendCounts{}, fmt.Errorf("%w: %d", ErrInvalidWindow, windowSize)
	}

	count := len(samples)
	if count < windowSize {
		return TrendCounts{}, nil
	}

	counts := TrendCounts{Windows: count - windowSize + 1}

	for i := 1; i < counts.Windows; i++ {
		entering, leaving := samples[i+windowSize-1], samples[i-1]

		switch {
		case entering > leaving:
			counts.Increasing++
		case entering < leaving:
			counts.Decreasing++
		}
	}

	return counts, nil
}
