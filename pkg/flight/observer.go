package flight

import "time"

// Observer is notified from within Controller.Drive. Calls are synchronous and
// must return quickly; an observer must not call back into the controller.
type Observer interface {
	// Data receives every raw sample, including the very first one.
	Data(ts Timestamp, pressure, acceleration float64)
	// Elapsed is called once per sample after the automaton clock advanced.
	Elapsed(ts Timestamp, elapsed time.Duration)
	// EventProduced receives every derived event, whether or not it caused a transition.
	EventProduced(ts Timestamp, e Event)
	// StateChanged is called after the state-entry side effects ran.
	StateChanged(ts Timestamp, s State)
}

// NopObserver ignores all notifications. Embed it to implement only some of them.
type NopObserver struct{}

var _ Observer = NopObserver{}

func (NopObserver) Data(Timestamp, float64, float64) {}
func (NopObserver) Elapsed(Timestamp, time.Duration) {}
func (NopObserver) EventProduced(Timestamp, Event) {}
func (NopObserver) StateChanged(Timestamp, State) {}

// Observers fans notifications out to several observers in order.
type Observers []Observer

var _ Observer = Observers(nil)

func (o Observers) Data(ts Timestamp, pressure, acceleration float64) {
	for _, obs := range o {
		obs.Data(ts, pressure, acceleration)
	}
}

func (o Observers) Elapsed(ts Timestamp, elapsed time.Duration) {
	for _, obs := range o {
		obs.Elapsed(ts, elapsed)
	}
}

func (o Observers) EventProduced(ts Timestamp, e Event) {
	for _, obs := range o {
		obs.EventProduced(ts, e)
	}
}

func (o Observers) StateChanged(ts Timestamp, s State) {
	for _, obs := range o {
		obs.StateChanged(ts, s)
	}
}
