// Package stats provides small streaming estimators used to calibrate noisy
// single-channel sensor readings.
package stats

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"
)

var (
	// ErrWindowTooSmall is returned for windows shorter than two samples, which
	// have no sample variance.
	ErrWindowTooSmall = errors.New("window must hold at least 2 samples")
	// ErrConfidence is returned when the confidence count is outside [1, window].
	ErrConfidence = errors.New("confidence must be between 1 and the window size")
)

// Estimate is the mean and variance reported by an estimator.
type Estimate struct {
	Mean     float64
	Variance float64
}

// StdDev returns the standard deviation of the estimate.
func (e Estimate) StdDev() float64 {
	return math.Sqrt(e.Variance)
}

// Rolling is an O(1) running mean/variance estimator for a trailing window of n
// samples. It does not keep the window itself: each update replaces the previous
// sample instead of the one falling out of the window, so the variance is an
// approximation that trades exactness for constant memory and cost.
type Rolling struct {
	n          float64
	confidence int

	average  float64
	variance float64
	previous float64
	updates  int
}

// NewRolling creates a rolling estimator seeded with an initial average and
// variance. Update only reports once confidence samples were absorbed.
func NewRolling(n, confidence int, average, variance float64) (*Rolling, error) {
	if n < 2 {
		return nil, fmt.Errorf("rolling window %d: %w", n, ErrWindowTooSmall)
	}
	if confidence < 1 || confidence > n {
		return nil, fmt.Errorf("rolling confidence %d of %d: %w", confidence, n, ErrConfidence)
	}
	return &Rolling{
		n:          float64(n),
		confidence: confidence,
		average:    average,
		variance:   variance,
		previous:   average,
	}, nil
}

// Update absorbs a sample. The estimate is valid once the confidence count is reached.
func (r *Rolling) Update(value float64) (Estimate, bool) {
	r.updates++

	oldAvg := r.average
	newAvg := oldAvg + (value-r.previous)/r.n
	r.average = newAvg
	r.variance += (value - r.previous) * (value - newAvg + r.previous - oldAvg) / (r.n - 1)
	r.previous = value

	if r.updates < r.confidence {
		return Estimate{}, false
	}
	return Estimate{Mean: r.average, Variance: r.variance}, true
}

// Current returns the latest estimate, following the same confidence rule as Update.
func (r *Rolling) Current() (Estimate, bool) {
	if r.updates < r.confidence {
		return Estimate{}, false
	}
	return Estimate{Mean: r.average, Variance: r.variance}, true
}

// Window keeps the last n samples in a circular buffer and recomputes the exact
// mean and sample variance over them on every update once full.
type Window struct {
	values  []float64
	updates int
}

// NewWindow creates a circular window of n samples.
func NewWindow(n int) (*Window, error) {
	if n < 2 {
		return nil, fmt.Errorf("window %d: %w", n, ErrWindowTooSmall)
	}
	return &Window{values: make([]float64, n)}, nil
}

// MustWindow is like NewWindow but panics for invalid sizes.
func MustWindow(n int) *Window {
	w, err := NewWindow(n)
	if err != nil {
		panic(err)
	}
	return w
}

// Size returns the window length.
func (w *Window) Size() int {
	return len(w.values)
}

// Full reports whether the window has seen at least Size samples.
func (w *Window) Full() bool {
	return w.updates >= len(w.values)
}

// Update stores the sample and, when the window is full, returns mean and
// variance (divisor n-1) over its contents.
func (w *Window) Update(value float64) (Estimate, bool) {
	w.values[w.updates%len(w.values)] = value
	w.updates++
	return w.Current()
}

// Current returns the estimate over the current window contents.
func (w *Window) Current() (Estimate, bool) {
	if !w.Full() {
		return Estimate{}, false
	}
	mean, variance := stat.MeanVariance(w.values, nil)
	return Estimate{Mean: mean, Variance: variance}, true
}

// Median returns the upper median of the window. It sorts the stored samples in
// place: only order statistics of the window are needed afterwards, not the
// arrival order.
func (w *Window) Median() (float64, bool) {
	if !w.Full() {
		return 0, false
	}
	slices.Sort(w.values)
	return w.values[len(w.values)/2], true
}
