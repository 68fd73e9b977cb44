// Package flight detects the flight phase of a model rocket from barometric
// pressure and acceleration samples.
//
// A Controller combines a timed finite automaton with two statistics windows: one
// calibrates the ground pressure before launch, the other tracks the lowest
// pressure (highest altitude) during ascent to detect apogee. Every sample is
// turned into a fixed sequence of events that drive the automaton.
package flight

import (
	"time"

	"github.com/itohio/gofar/pkg/stats"
	"github.com/itohio/gofar/pkg/tfa"
)

// Detection thresholds. Pressure is in mbar, acceleration is the magnitude
// reported by the accelerometer in m/s².
const (
	// We reach a shoulder of about 20 m/s² during the burn.
	LaunchAccelerationThreshold = 15.0
	// The accelerometer only reports a magnitude, so burnout and free fall read
	// as close to zero.
	FreefallAccelerationThreshold = 3.0
	// Pressure difference to ground level that counts as safely launched.
	LaunchPressureDifferential = 5.0
	// Rise above the lowest pressure seen that counts as having passed apogee.
	PeakPressureMargin = 0.6
	// Maximum variance of the ground window accepted as calibrated.
	PressureVarianceThreshold = 3.0

	GroundPressureWindow = 2
	PeakPressureWindow   = 10
)

// Timing of the flight profile.
const (
	AccelerationTime       = 400 * time.Millisecond
	MotorBurnTime          = 2500 * time.Millisecond
	SeparationDelay        = 1000 * time.Millisecond
	FallingPressurePeriod  = 1000 * time.Millisecond
	ApogeeTime             = 6565 * time.Millisecond
	ApogeeDetectionMargin  = 5000 * time.Millisecond
	ExpectedApogeeFallback = ApogeeTime + ApogeeDetectionMargin
)

var transitionTable = []tfa.Transition[State, Event]{
	tfa.Timeout[State, Event](Idle, 0, EstablishGroundPressure),
	tfa.Event(EstablishGroundPressure, GroundPressureEstablished, WaitForLaunch),
	tfa.Event(WaitForLaunch, AccelerationAboveThreshold, AccelerationDetected),
	tfa.Event(AccelerationDetected, AccelerationBelowThreshold, WaitForLaunch),
	tfa.Timeout[State, Event](AccelerationDetected, AccelerationTime, Accelerating),
	tfa.Event(Accelerating, AccelerationBelowThreshold, WaitForLaunch),
	tfa.Event(Accelerating, PressureBelowLaunchThreshold, Launched),
	tfa.Event(Launched, AccelerationAroundZero, Burnout),
	// Acceleration was already confirmed for AccelerationTime of the burn.
	tfa.Timeout[State, Event](Launched, MotorBurnTime-AccelerationTime, Burnout),
	tfa.Timeout[State, Event](Burnout, SeparationDelay, Separation),
	tfa.Timeout[State, Event](Separation, 0, Coasting),
	tfa.Event(Coasting, PressurePeakReached, Falling),
	tfa.Event(Coasting, ExpectedApogeeTimeReached, Falling),
	tfa.Timeout[State, Event](Falling, FallingPressurePeriod, MeasureFallingPressure1),
	tfa.Timeout[State, Event](MeasureFallingPressure1, FallingPressurePeriod, MeasureFallingPressure2),
	tfa.Timeout[State, Event](MeasureFallingPressure2, FallingPressurePeriod, MeasureFallingPressure3),
	tfa.Event(MeasureFallingPressure3, PressureDropLinear, DrogueOpened),
	tfa.Event(MeasureFallingPressure3, PressureDropQuadratic, DrogueFailed),
	tfa.Event(DrogueOpened, PressureAboveLaunchThreshold, Landed),
	tfa.Event(DrogueFailed, PressureAboveLaunchThreshold, Landed),
	tfa.Event(DrogueFailed, RestartPressureMeasurement, Falling),
}

// Transitions returns a copy of the transition table the controller runs on.
func Transitions() []tfa.Transition[State, Event] {
	return append([]tfa.Transition[State, Event](nil), transitionTable...)
}

// Option configures a Controller.
type Option func(*Controller)

// WithClassifier replaces the descent profile classifier.
func WithClassifier(c Classifier) Option {
	return func(ctl *Controller) {
		if c != nil {
			ctl.classifier = c
		}
	}
}

// Controller is the flight-phase state machine. It is not safe for concurrent
// use: Drive and the queries must be called from one goroutine or guarded by the
// caller.
type Controller struct {
	machine    *tfa.Automaton[State, Event]
	observer   Observer
	classifier Classifier

	lastTimestamp Timestamp
	started       bool

	groundPressure float64
	hasGround      bool

	peakPressure float64
	hasPeak      bool

	liftoff    Timestamp
	hasLiftoff bool

	// Only exist while the respective calibration is running.
	groundStats *stats.Window
	peakStats   *stats.Window

	measurements  [3]Measurement
	assessment    PressureDrop
	hasAssessment bool
	restart       bool
}

// New creates a controller in the Idle state. A nil observer is replaced by a
// NopObserver. The observer is borrowed for the controller's lifetime.
func New(observer Observer, opts ...Option) *Controller {
	if observer == nil {
		observer = NopObserver{}
	}
	c := &Controller{
		machine:    tfa.MustBuild(Idle, transitionTable),
		observer:   observer,
		classifier: NewFitClassifier(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current flight phase.
func (c *Controller) State() State {
	return c.machine.State()
}

// GroundPressure returns the calibrated ground pressure in mbar.
func (c *Controller) GroundPressure() (float64, bool) {
	return c.groundPressure, c.hasGround
}

// PeakPressure returns the lowest pressure reliably observed during ascent.
func (c *Controller) PeakPressure() (float64, bool) {
	return c.peakPressure, c.hasPeak
}

// LiftoffTimestamp returns the timestamp at which acceleration was first detected
// for the current launch attempt.
func (c *Controller) LiftoffTimestamp() (Timestamp, bool) {
	return c.liftoff, c.hasLiftoff
}

// FlightTime returns the time since liftoff as of the last sample.
func (c *Controller) FlightTime() (time.Duration, bool) {
	if !c.hasLiftoff {
		return 0, false
	}
	return c.lastTimestamp.Sub(c.liftoff), true
}

// Drive processes one sensor sample. Pressure is in mbar, acceleration is the
// accelerometer magnitude in m/s². It never blocks and never fails.
func (c *Controller) Drive(ts Timestamp, pressure, acceleration float64) {
	c.observer.Data(ts, pressure, acceleration)
	if !c.started {
		// No elapsed time is defined for the first sample.
		c.started = true
		c.lastTimestamp = ts
		return
	}

	elapsed := ts.Sub(c.lastTimestamp)
	c.lastTimestamp = ts
	c.processPressure(pressure)

	old := c.machine.State()
	c.machine.Elapsed(elapsed)
	c.observer.Elapsed(ts, elapsed)

	c.produceEvents(ts, pressure, acceleration)

	if to := c.machine.State(); to != old {
		c.enter(to, pressure)
		c.observer.StateChanged(ts, to)
	}
}

func (c *Controller) processPressure(pressure float64) {
	if c.groundStats != nil {
		if est, ok := c.groundStats.Update(pressure); ok && est.Variance < PressureVarianceThreshold {
			c.groundPressure = est.Mean
			c.hasGround = true
		}
	}
	if c.peakStats != nil {
		if _, ok := c.peakStats.Update(pressure); ok {
			median, _ := c.peakStats.Median()
			if !c.hasPeak || median < c.peakPressure {
				c.peakPressure = median
			}
			c.hasPeak = true
		}
	}
}

// produceEvents feeds events in a fixed order. Each one is fed immediately, so a
// transition caused by an earlier event decides which later ones apply.
func (c *Controller) produceEvents(ts Timestamp, pressure, acceleration float64) {
	if c.hasGround {
		// Fed on every sample while calibrated, not only once.
		c.feed(ts, GroundPressureEstablished)
		if c.groundPressure-pressure >= LaunchPressureDifferential {
			c.feed(ts, PressureBelowLaunchThreshold)
		} else {
			c.feed(ts, PressureAboveLaunchThreshold)
		}
	}

	if acceleration > LaunchAccelerationThreshold {
		c.feed(ts, AccelerationAboveThreshold)
	} else {
		c.feed(ts, AccelerationBelowThreshold)
		if acceleration < FreefallAccelerationThreshold {
			c.feed(ts, AccelerationAroundZero)
		}
	}

	if c.hasPeak && pressure > c.peakPressure+PeakPressureMargin {
		c.feed(ts, PressurePeakReached)
	}

	if ft, ok := c.FlightTime(); ok && ft >= ExpectedApogeeFallback {
		c.feed(ts, ExpectedApogeeTimeReached)
	}

	if c.hasAssessment {
		switch c.assessment {
		case Linear:
			c.feed(ts, PressureDropLinear)
		case Quadratic:
			c.feed(ts, PressureDropQuadratic)
		}
		c.hasAssessment = false
	}

	if c.restart {
		c.feed(ts, RestartPressureMeasurement)
		c.restart = false
	}
}

func (c *Controller) feed(ts Timestamp, e Event) {
	c.machine.Feed(e)
	c.observer.EventProduced(ts, e)
}

// enter runs the side effects of entering a state.
func (c *Controller) enter(to State, pressure float64) {
	switch to {
	case EstablishGroundPressure:
		c.groundStats = stats.MustWindow(GroundPressureWindow)
	case WaitForLaunch:
		c.hasLiftoff = false
		// The established ground pressure is kept.
		c.groundStats = nil
	case AccelerationDetected:
		c.liftoff = c.lastTimestamp
		c.hasLiftoff = true
	case Launched:
		c.peakStats = stats.MustWindow(PeakPressureWindow)
	case Falling:
		c.peakStats = nil
	case MeasureFallingPressure1:
		c.measure(0, pressure)
	case MeasureFallingPressure2:
		c.measure(1, pressure)
	case MeasureFallingPressure3:
		c.measure(2, pressure)
		c.assessment = c.classifier.Classify(c.measurements)
		c.hasAssessment = true
	case DrogueFailed:
		// Measure the descent again on the next sample unless we land first.
		c.restart = true
	}
}

func (c *Controller) measure(slot int, pressure float64) {
	c.measurements[slot] = Measurement{Timestamp: c.lastTimestamp, Pressure: pressure}
}
