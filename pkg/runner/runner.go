// Package runner feeds converted samples into a flight controller and exposes
// the flight status to other goroutines.
package runner

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/itohio/gofar/pkg/flight"
	"github.com/itohio/gofar/pkg/sample"
)

// Logf is used for all runner log output. Replace it with SetLogger.
var Logf = log.Printf

// SetLogger replaces the log function. A nil function disables logging.
func SetLogger(f func(format string, args ...any)) {
	if f == nil {
		f = func(string, ...any) {}
	}
	Logf = f
}

// DefaultHistory is how much of the sample stream the runner keeps.
const DefaultHistory = 2 * time.Minute

// Transition is a recorded state change.
type Transition struct {
	Timestamp flight.Timestamp
	State     flight.State
}

// Status is a snapshot of the flight.
type Status struct {
	Session        string
	State          flight.State
	Samples        int
	Last           sample.Sample
	GroundPressure float64
	HasGround      bool
	PeakPressure   float64
	HasPeak        bool
	FlightTime     time.Duration
	InFlight       bool
	Transitions    []Transition
}

// Runner owns a flight controller. Drive calls are serialized, all queries are
// safe for concurrent use.
type Runner struct {
	session uuid.UUID
	ctl     *flight.Controller

	mu          sync.RWMutex
	samples     int
	last        sample.Sample
	history     []sample.Sample // FIFO, oldest first, trimmed by timestamp
	historySpan time.Duration
	transitions []Transition
	changed     bool

	callbacks []func(Status)
	cbMu      sync.RWMutex

	// Set when the input channel closes, prevents further callbacks.
	shutdown bool
}

// New creates a runner. The observer receives all controller notifications
// after the runner recorded them.
func New(observer flight.Observer, opts ...flight.Option) *Runner {
	r := &Runner{
		session:     uuid.New(),
		historySpan: DefaultHistory,
	}

	observers := flight.Observers{journal{r: r}}
	if observer != nil {
		observers = append(observers, observer)
	}
	r.ctl = flight.New(observers, opts...)

	return r
}

// Session identifies this run in logs and recordings.
func (r *Runner) Session() string {
	return r.session.String()
}

// ProcessSamples drives the controller until input closes. When it returns
// the shutdown flag is set.
func (r *Runner) ProcessSamples(input <-chan sample.Sample) {
	for s := range input {
		r.Process(s)
	}

	r.mu.Lock()
	r.shutdown = true
	r.mu.Unlock()

	status := r.Status()
	Logf("[%s] input closed after %d samples in state %v", r.Session(), status.Samples, status.State)
}

// Process drives a single sample.
func (r *Runner) Process(s sample.Sample) {
	r.mu.Lock()
	r.samples++
	r.last = s
	r.record(s)
	r.changed = false
	r.ctl.Drive(s.Timestamp, s.Pressure, s.Acceleration)
	if r.changed {
		r.logTransition()
	}
	notify := r.changed && !r.shutdown
	r.mu.Unlock()

	if notify {
		r.notifyCallbacks()
	}
}

// record adds to the history and drops samples older than the history span.
func (r *Runner) record(s sample.Sample) {
	r.history = append(r.history, s)

	cutoff := 0
	for i, h := range r.history {
		if s.Timestamp.Sub(h.Timestamp) <= r.historySpan {
			cutoff = i
			break
		}
	}
	if cutoff > 0 {
		r.history = append(r.history[:0], r.history[cutoff:]...)
	}
}

func (r *Runner) logTransition() {
	state := r.ctl.State()
	if ft, ok := r.ctl.FlightTime(); ok {
		Logf("[%s] %v at T+%.2fs", r.session, state, ft.Seconds())
		return
	}
	Logf("[%s] %v", r.session, state)
}

// State returns the current flight phase.
func (r *Runner) State() flight.State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ctl.State()
}

// Landed reports whether the flight is over.
func (r *Runner) Landed() bool {
	return r.State() == flight.Landed
}

// Status returns a snapshot of the flight.
func (r *Runner) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status()
}

func (r *Runner) status() Status {
	st := Status{
		Session:     r.session.String(),
		State:       r.ctl.State(),
		Samples:     r.samples,
		Last:        r.last,
		Transitions: append([]Transition(nil), r.transitions...),
	}
	st.GroundPressure, st.HasGround = r.ctl.GroundPressure()
	st.PeakPressure, st.HasPeak = r.ctl.PeakPressure()
	st.FlightTime, st.InFlight = r.ctl.FlightTime()
	return st
}

// History returns at most maxPoints samples of the recent history.
func (r *Runner) History(maxPoints int) []sample.Sample {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sample.Downsample(nil, r.history, maxPoints)
}

// OnUpdate registers a callback invoked after every state change.
// The callback should return as fast as possible.
func (r *Runner) OnUpdate(callback func(Status)) {
	r.cbMu.Lock()
	defer r.cbMu.Unlock()
	r.callbacks = append(r.callbacks, callback)
}

// ResetShutdown allows callbacks again after the input closed.
func (r *Runner) ResetShutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shutdown = false
}

func (r *Runner) notifyCallbacks() {
	status := r.Status()

	r.cbMu.RLock()
	callbacks := make([]func(Status), len(r.callbacks))
	copy(callbacks, r.callbacks)
	r.cbMu.RUnlock()

	for _, cb := range callbacks {
		if cb != nil {
			cb(status)
		}
	}
}

// journal records state changes. It runs inside Drive, with the runner lock held.
type journal struct {
	flight.NopObserver
	r *Runner
}

func (j journal) StateChanged(ts flight.Timestamp, s flight.State) {
	j.r.transitions = append(j.r.transitions, Transition{Timestamp: ts, State: s})
	j.r.changed = true
}
