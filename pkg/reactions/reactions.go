// Package reactions drives the flight computer's actuators (radio, buzzer and
// pyro channels) in response to flight-phase changes.
package reactions

import (
	"log"
	"sync"
	"time"

	"github.com/itohio/gofar/pkg/flight"
)

// RadioPower is a transmitter power level.
type RadioPower int

const (
	RadioMin RadioPower = iota
	RadioLow
	RadioHigh
	RadioMax
)

func (p RadioPower) String() string {
	switch p {
	case RadioMin:
		return "MIN"
	case RadioLow:
		return "LOW"
	case RadioHigh:
		return "HIGH"
	case RadioMax:
		return "MAX"
	}
	return "UNKNOWN"
}

const (
	// PyroChannels is the number of pyro outputs on the board.
	PyroChannels = 4
	// DrogueChannel fires the drogue ejection charge.
	DrogueChannel = 0
)

// Tone is a buzzer note followed by a pause.
type Tone struct {
	Frequency float64 // Hz
	Duration  time.Duration
	Pause     time.Duration
}

// Actuators are the outputs reacting to the flight. Implementations must not
// block for long; tones are queued, not played synchronously.
type Actuators interface {
	SetRadioPower(level RadioPower) error
	PlayTones(tones []Tone) error
	SetPyro(channel int, on bool) error
}

var (
	launchTones = []Tone{
		{Frequency: 440, Duration: 500 * time.Millisecond},
		{Frequency: 880, Duration: 500 * time.Millisecond},
		{Frequency: 1760, Duration: 500 * time.Millisecond},
	}
	apogeeTones = []Tone{
		{Frequency: 1500, Duration: 100 * time.Millisecond, Pause: 100 * time.Millisecond},
		{Frequency: 1500, Duration: 100 * time.Millisecond, Pause: 100 * time.Millisecond},
		{Frequency: 1500, Duration: 100 * time.Millisecond},
	}
	// Played while waiting for recovery.
	landingMelody = []Tone{
		{Frequency: 659.25, Duration: 250 * time.Millisecond},
		{Frequency: 698.46, Duration: 125 * time.Millisecond},
		{Frequency: 783.99, Duration: 250 * time.Millisecond},
		{Frequency: 1046.50, Duration: 750 * time.Millisecond, Pause: 250 * time.Millisecond},
		{Frequency: 587.33, Duration: 250 * time.Millisecond},
		{Frequency: 659.25, Duration: 125 * time.Millisecond},
		{Frequency: 698.46, Duration: 1000 * time.Millisecond},
	}
)

// Reactions is a flight.Observer acting on state changes.
type Reactions struct {
	flight.NopObserver

	act Actuators

	mu    sync.RWMutex
	state flight.State
}

var _ flight.Observer = (*Reactions)(nil)

// New creates reactions driving act.
func New(act Actuators) *Reactions {
	return &Reactions{act: act, state: flight.Idle}
}

// SafeToFlush reports whether storage may be flushed without risking a stall
// during flight, i.e. before the pad is calibrated.
func (r *Reactions) SafeToFlush() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state == flight.Idle || r.state == flight.EstablishGroundPressure
}

// StateChanged implements flight.Observer.
func (r *Reactions) StateChanged(_ flight.Timestamp, s flight.State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()

	switch s {
	case flight.Launched:
		r.check("radio power", r.act.SetRadioPower(RadioMax))
		r.check("launch tones", r.act.PlayTones(launchTones))
	case flight.Falling:
		r.check("drogue charge", r.act.SetPyro(DrogueChannel, true))
		r.check("apogee tones", r.act.PlayTones(apogeeTones))
	case flight.Landed:
		for ch := range PyroChannels {
			r.check("pyro off", r.act.SetPyro(ch, false))
		}
		r.check("landing melody", r.act.PlayTones(landingMelody))
		r.check("radio power", r.act.SetRadioPower(RadioHigh))
	}
}

func (r *Reactions) check(what string, err error) {
	if err != nil {
		log.Printf("Reaction %s failed: %v", what, err)
	}
}
