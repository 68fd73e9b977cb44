package sensor

import (
	"context"
	"sync"
	"time"

	"github.com/itohio/gofar/pkg/config"
)

// Mock plays a simulated flight in real time.
type Mock struct {
	sim  *Simulator
	rate time.Duration

	samples   chan RawSample
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	connected bool
	done      chan struct{}
	used      bool
}

// NewMock creates a mocked board flying the given simulation. A nil config
// uses the defaults.
func NewMock(cfg *config.Config) *Mock {
	if cfg == nil {
		cfg = config.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	sim := NewSimulator(cfg.Simulation, cfg.Sensor.CountsPerG)

	return &Mock{
		sim:     sim,
		rate:    sim.cfg.SampleRate,
		samples: make(chan RawSample, DefaultBufferSize),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
}

// Connect starts generating samples. The flight continues where the previous
// connection left it.
func (m *Mock) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connected {
		return ErrAlreadyConnected
	}
	if m.used {
		m.ctx, m.cancel = context.WithCancel(context.Background())
		m.samples = make(chan RawSample, DefaultBufferSize)
		m.done = make(chan struct{})
	}

	m.connected = true
	m.used = true
	go m.generateSamples(m.ctx, m.samples, m.done)

	return nil
}

// Close stops the mocked board and closes the samples channel.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return nil
	}
	m.cancel()
	m.connected = false

	// The generator is the only sender.
	<-m.done
	return nil
}

// Samples returns the channel for reading samples.
func (m *Mock) Samples() <-chan RawSample {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.samples
}

// IsConnected returns whether the mock is generating samples.
func (m *Mock) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

// Send accepts and discards a command.
func (m *Mock) Send(string) error {
	if !m.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

func (m *Mock) generateSamples(ctx context.Context, samples chan<- RawSample, done chan<- struct{}) {
	defer close(done)
	defer close(samples)

	ticker := time.NewTicker(m.rate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sample := m.sim.Next()
			select {
			case samples <- sample:
			case <-ctx.Done():
				return
			default:
				// Channel full, skip
			}
		}
	}
}
