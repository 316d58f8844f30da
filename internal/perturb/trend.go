package perturb

// #region trend-estimator
// TrendEstimator keeps a bounded history of scalar signals and produces an
// exponentially-weighted rolling average. The newest entry carries weight 1;
// each older entry is discounted by another factor of decay.
type TrendEstimator struct {
	decay   float64
	window  int
	history []float64
}

// NewTrendEstimator creates an estimator with the given decay and history cap.
func NewTrendEstimator(decay float64, window int) *TrendEstimator {
	return &TrendEstimator{
		decay:   decay,
		window:  window,
		history: make([]float64, 0, window),
	}
}

// #endregion trend-estimator

// #region observe
// Observe appends v to the history, evicting the oldest entry once the
// window is full.
func (t *TrendEstimator) Observe(v float64) {
	t.history = append(t.history, v)
	if len(t.history) > t.window {
		t.history = t.history[1:]
	}
}

// #endregion observe

// #region average
// Average returns the exponentially-weighted rolling average, or 0 when no
// signals have been observed.
func (t *TrendEstimator) Average() float64 {
	if len(t.history) == 0 {
		return 0
	}
	var sum, totalWeight float64
	weight := 1.0
	for i := len(t.history) - 1; i >= 0; i-- {
		sum += t.history[i] * weight
		totalWeight += weight
		weight *= t.decay
	}
	if totalWeight == 0 {
		return 0
	}
	return sum / totalWeight
}

// #endregion average

// #region accessors
// Len returns the number of signals currently in the window.
func (t *TrendEstimator) Len() int {
	return len(t.history)
}

// Last returns the most recent signal, or 0 when the history is empty.
func (t *TrendEstimator) Last() float64 {
	if len(t.history) == 0 {
		return 0
	}
	return t.history[len(t.history)-1]
}

// Reset clears the history.
func (t *TrendEstimator) Reset() {
	t.history = t.history[:0]
}

// #endregion accessors
