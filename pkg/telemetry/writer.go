package telemetry

import (
	"io"
	"log"
	"sync"
	"time"

	"github.com/itohio/gofar/pkg/flight"
)

// Writer is a flight.Observer writing sentences to an io.Writer. State changes
// are always written, data sentences once every dataEvery samples, event
// sentences only when enabled.
type Writer struct {
	mu    sync.Mutex
	w     io.Writer
	clock Clock
	every int
	count int

	events   bool
	pressure float64
	err      error
}

var _ flight.Observer = (*Writer)(nil)

// Option configures a Writer.
type Option func(*Writer)

// WithEvents also writes a sentence for every derived event. Level events are
// produced on every sample, so this is verbose.
func WithEvents() Option {
	return func(w *Writer) { w.events = true }
}

// NewWriter creates a Writer. dataEvery below one writes every sample.
func NewWriter(w io.Writer, dataEvery int, opts ...Option) *Writer {
	if dataEvery < 1 {
		dataEvery = 1
	}
	tw := &Writer{w: w, every: dataEvery}
	for _, opt := range opts {
		opt(tw)
	}
	return tw
}

// Err returns the first write error. Once a write failed nothing more is
// written.
func (w *Writer) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

func (w *Writer) Data(ts flight.Timestamp, pressure, acceleration float64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	at := w.clock.Time(ts)
	w.pressure = pressure
	w.count++
	if (w.count-1)%w.every == 0 {
		w.write(DataSentence(at, pressure, acceleration))
	}
}

func (w *Writer) Elapsed(flight.Timestamp, time.Duration) {}

func (w *Writer) EventProduced(ts flight.Timestamp, e flight.Event) {
	if !w.events {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.write(EventSentence(w.clock.Time(ts), e))
}

func (w *Writer) StateChanged(ts flight.Timestamp, s flight.State) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.write(StateSentence(w.clock.Time(ts), s, w.pressure))
}

func (w *Writer) write(s string) {
	if w.err != nil {
		return
	}
	if _, err := io.WriteString(w.w, s); err != nil {
		w.err = err
		log.Printf("Telemetry write failed, output stopped: %v", err)
	}
}
