// Package scope renders the recorded flight profile: pressure and acceleration
// over time with the state changes marked.
package scope

import (
	"sync"
	"time"

	"github.com/itohio/gofar/pkg/flight"
	"github.com/itohio/gofar/pkg/runner"
	"github.com/itohio/gofar/pkg/sample"
)

// DefaultMaxPoints limits the number of points drawn per trace.
const DefaultMaxPoints = 1000

// MinWindow is the shortest time axis drawn.
const MinWindow = 10 * time.Second

// Range is an axis range.
type Range struct {
	Min, Max float64
}

// Scope holds the data of one flight profile plot.
type Scope struct {
	mu          sync.RWMutex
	samples     []sample.Sample // downsampled for display
	transitions []runner.Transition
	maxPoints   int

	pressure     Range
	acceleration Range
	window       time.Duration
}

// New creates an empty scope. maxPoints of zero uses DefaultMaxPoints.
func New(maxPoints int) *Scope {
	if maxPoints <= 0 {
		maxPoints = DefaultMaxPoints
	}
	s := &Scope{
		samples:   make([]sample.Sample, 0, maxPoints),
		maxPoints: maxPoints,
	}
	s.updateAutoScale()
	return s
}

// UpdateData replaces the plotted data.
func (s *Scope) UpdateData(samples []sample.Sample, transitions []runner.Transition) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.samples = sample.Downsample(s.samples, samples, s.maxPoints)
	s.transitions = append(s.transitions[:0], transitions...)
	s.updateAutoScale()
}

// PressureRange returns the pressure axis in mbar.
func (s *Scope) PressureRange() Range {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pressure
}

// AccelerationRange returns the acceleration axis in m/s².
func (s *Scope) AccelerationRange() Range {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.acceleration
}

// Window returns the length of the time axis.
func (s *Scope) Window() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.window
}

func (s *Scope) updateAutoScale() {
	s.window = MinWindow
	if len(s.samples) == 0 {
		s.pressure = Range{0, 1}
		s.acceleration = Range{0, 1}
		return
	}

	p := Range{s.samples[0].Pressure, s.samples[0].Pressure}
	a := Range{s.samples[0].Acceleration, s.samples[0].Acceleration}
	for _, smp := range s.samples {
		p.Min = min(p.Min, smp.Pressure)
		p.Max = max(p.Max, smp.Pressure)
		a.Min = min(a.Min, smp.Acceleration)
		a.Max = max(a.Max, smp.Acceleration)
	}
	s.pressure = withMargin(p)
	s.acceleration = withMargin(a)

	if span := s.offset(s.samples[len(s.samples)-1].Timestamp); span > s.window {
		s.window = span
	}
}

// withMargin adds 10% on both ends.
func withMargin(r Range) Range {
	span := r.Max - r.Min
	if span == 0 {
		span = 1
	}
	margin := span * 0.1
	return Range{r.Min - margin, r.Max + margin}
}

// offset is the time since the first displayed sample. Counter wraps are
// handled by flight.Timestamp.
func (s *Scope) offset(ts flight.Timestamp) time.Duration {
	return ts.Sub(s.samples[0].Timestamp)
}
