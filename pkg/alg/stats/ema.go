package stats

// EMA computes an exponential moving average with a fixed smoothing factor.
type EMA struct {
	alpha       float64
	value       float64
	initialized bool
}

// NewEMA creates an EMA with the given smoothing factor alpha in (0, 1].
func NewEMA(alpha float64) *EMA {
	return &EMA{alpha: Clamp(alpha, 0, 1)}
}

// Update feeds a new observation and returns the updated average.
// The first call seeds the average with the observation itself.
func (e *EMA) Update(v float64) float64 {
	if !e.initialized {
		e.value = v
		e.initialized = true

		return e.value
	}

	e.value = e.alpha*v + (1-e.alpha)*e.value

	return e.value
}

// Value returns the current average (0 before any Update).
func (e *EMA) Value() float64 {
	return e.value
}

// Smooth returns the running EMA of values, one output per input.
func Smooth(values []float64, alpha float64) []float64 {
	if len(values) == 0 {
		return nil
	}

	ema := NewEMA(alpha)
	out := make([]float64, len(values))

	for i, v := range values {
		out[i] = ema.Update(v)
	}

	return out
}
