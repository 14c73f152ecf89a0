// Package anomaly detects sudden spikes in a normalized sample sequence using
// a trailing-window Z-score. It complements the fixed-threshold anomaly count
// produced by the loader: a spike is a sample far from its recent neighbours,
// regardless of its absolute level.
package anomaly

import (
	"errors"
	"fmt"
	"math"
)

// Default configuration values.
const (
	DefaultThreshold  = 2.0
	DefaultWindowSize = 20

	// MinWindowSize is the minimum valid sliding window size.
	MinWindowSize = 2
	// MinThreshold is the minimum valid Z-score threshold.
	MinThreshold = 0.1
)

// zScoreMaxSentinel is the Z-score returned when the window has zero spread
// but the current value differs from its mean.
const zScoreMaxSentinel = 100.0

// Running sums leave residue on flat windows; spreads and differences below
// these are treated as zero.
const (
	varianceEpsilon = 1e-15
	diffEpsilon     = 1e-9
)

// ErrInvalidOptions is returned for a window or threshold below the minimum.
var ErrInvalidOptions = errors.New("invalid spike detection options")

// Options configures spike detection.
type Options struct {
	WindowSize int
	Threshold  float64
}

// DefaultOptions returns a 20-sample window with a 2σ threshold.
func DefaultOptions() Options {
	return Options{WindowSize: DefaultWindowSize, Threshold: DefaultThreshold}
}

// Validate checks the options against the minimums.
func (o Options) Validate() error {
	if o.WindowSize < MinWindowSize {
		return fmt.Errorf("%w: window %d < %d", ErrInvalidOptions, o.WindowSize, MinWindowSize)
	}

	if o.Threshold < MinThreshold {
		return fmt.Errorf("%w: threshold %g < %g", ErrInvalidOptions, o.Threshold, MinThreshold)
	}

	return nil
}

// Spike is a sample whose Z-score exceeded the threshold.
type Spike struct {
	Index  int     `json:"index"   yaml:"index"`
	Value  float64 `json:"value"   yaml:"value"`
	ZScore float64 `json:"z_score" yaml:"z_score"`
}

// ComputeZScores computes the Z-score of each value against the trailing
// window values[max(0, i-window):i]. The first value has an empty window and
// scores 0. When the window has zero spread the score is 0 if the value equals
// the window mean and ±zScoreMaxSentinel otherwise.
func ComputeZScores(values []float64, window int) []float64 {
	count := len(values)
	if count == 0 {
		return nil
	}

	window = max(window, 1)
	scores := make([]float64, count)

	var sum, sumSq float64

	for i, v := range values {
		size := min(i, window)
		if size > 0 {
			scores[i] = zScore(v, sum, sumSq, size)
		}

		sum += v
		sumSq += v * v

		if i >= window {
			old := values[i-window]
			sum -= old
			sumSq -= old * old
		}
	}

	return scores
}

func zScore(v, sum, sumSq float64, size int) float64 {
	n := float64(size)
	mean := sum / n
	variance := sumSq/n - mean*mean

	if variance < varianceEpsilon {
		diff := v - mean
		if math.Abs(diff) < diffEpsilon {
			return 0
		}

		return math.Copysign(zScoreMaxSentinel, diff)
	}

	return (v - mean) / math.Sqrt(variance)
}

// DetectAnomalies returns the indices where the absolute Z-score exceeds
// the given threshold.
func DetectAnomalies(scores []float64, threshold float64) []int {
	var anomalies []int

	for i, score := range scores {
		if math.Abs(score) > threshold {
			anomalies = append(anomalies, i)
		}
	}

	return anomalies
}

// Detect returns the spikes in samples, in sample order. Samples before the
// first full window are never reported.
func Detect(samples []float64, opts Options) ([]Spike, error) {
	err := opts.Validate()
	if err != nil {
		return nil, err
	}

	scores := ComputeZScores(samples, opts.WindowSize)

	var spikes []Spike

	for _, idx := range DetectAnomalies(scores, opts.Threshold) {
		if idx < opts.WindowSize {
			continue
		}

		spikes = append(spikes, Spike{Index: idx, Value: samples[idx], ZScore: scores[idx]})
	}

	return spikes, nil
}
