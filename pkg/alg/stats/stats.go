// Package stats implements the statistics engine that runs over normalized
// sensor samples. All variance and standard deviation figures are population
// figures (÷n, not ÷(n−1)).
package stats

import (
	"errors"
	"fmt"
	"math"
)

// Sentinel errors.
var (
	// ErrEmptyDataset is returned when there are no samples to summarize.
	ErrEmptyDataset = errors.New("empty dataset")
	// ErrInvalidWindow is returned for a non-positive trend window size.
	ErrInvalidWindow = errors.New("window size must be positive")
)

// DefaultWindowSize is the trend window size used when none is configured.
const DefaultWindowSize = 100

// Summary holds the aggregate statistics of a sample sequence.
type Summary struct {
	Count    int         `json:"count"    yaml:"count"`
	Mean     float64     `json:"mean"     yaml:"mean"`
	Variance float64     `json:"variance" yaml:"variance"`
	StdDev   float64     `json:"std_dev"  yaml:"std_dev"`
	Trend    Trend       `json:"trend"    yaml:"trend"`
	Windows  TrendCounts `json:"windows"  yaml:"windows"`
}

// Summarize computes mean, variance, standard deviation and the windowed
// trend of samples. The samples are not modified.
func Summarize(samples []float64, windowSize int) (Summary, error) {
	mean, variance, stddev, err := Moments(samples)
	if err != nil {
		return Summary{}, err
	}

	counts, err := DetectTrend(samples, windowSize)
	if err != nil {
		return Summary{}, err
	}

	return Summary{
		Count:    len(samples),
		Mean:     mean,
		Variance: variance,
		StdDev:   stddev,
		Trend:    counts.Trend(),
		Windows:  counts,
	}, nil
}

// Moments returns mean, population variance and standard deviation from a
// single accumulation pass over Σx and Σx².
//
// The sum-of-squares identity can go a few ulps below zero for constant
// input, so the variance is floored at 0.
func Moments(samples []float64) (mean, variance, stddev float64, err error) {
	count := len(samples)
	if count == 0 {
		return 0, 0, 0, fmt.Errorf("moments: %w", ErrEmptyDataset)
	}

	var sumX, sumX2 float64

	for _, x := range samples {
		sumX += x
		sumX2 += x * x
	}

	n := float64(count)
	mean = sumX / n
	variance = max((sumX2-sumX*sumX/n)/n, 0)

	return mean, variance, math.Sqrt(variance), nil
}
