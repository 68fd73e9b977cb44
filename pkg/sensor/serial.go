package sensor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"sync"

	"github.com/cenkalti/backoff"
	"go.bug.st/serial"
)

var (
	ErrAlreadyConnected = errors.New("already connected")
	ErrNotConnected     = errors.New("not connected")
)

// Serial reads samples from the flight board over a serial port.
//
// The board prints one sample per line:
//
//	micros,pressure_pa,ax,ay,az
//	4294967040,101325.00,12,-3,2048
type Serial struct {
	port     string
	baudRate int
	bufSize  int
	retries  uint64

	open       func(name string, mode *serial.Mode) (io.ReadWriteCloser, error)
	newBackOff func() backoff.BackOff

	conn      io.ReadWriteCloser
	samples   chan RawSample
	done      chan struct{}
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	connected bool
	// Set once a reader ran; its channels are closed and must be replaced.
	used bool
}

// NewSerial creates a serial source. A failed open is retried up to retries
// times with exponential backoff.
func NewSerial(port string, baudRate, bufSize int, retries uint64) *Serial {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	if bufSize == 0 {
		bufSize = DefaultBufferSize
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Serial{
		port:     port,
		baudRate: baudRate,
		bufSize:  bufSize,
		retries:  retries,
		open: func(name string, mode *serial.Mode) (io.ReadWriteCloser, error) {
			return serial.Open(name, mode)
		},
		newBackOff: func() backoff.BackOff { return backoff.NewExponentialBackOff() },
		samples:    make(chan RawSample, bufSize),
		done:       make(chan struct{}),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Connect opens the serial port and starts reading samples.
func (d *Serial) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected {
		return ErrAlreadyConnected
	}
	if d.used {
		d.ctx, d.cancel = context.WithCancel(context.Background())
		d.samples = make(chan RawSample, d.bufSize)
		d.done = make(chan struct{})
		d.used = false
	}

	mode := &serial.Mode{
		BaudRate: d.baudRate,
	}

	// WithMaxRetries treats zero as unlimited.
	var policy backoff.BackOff = &backoff.StopBackOff{}
	if d.retries > 0 {
		policy = backoff.WithMaxRetries(d.newBackOff(), d.retries)
	}

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		conn, err := d.open(d.port, mode)
		if err != nil {
			log.Printf("Opening %s (attempt %d): %v", d.port, attempt, err)
			return err
		}
		d.conn = conn
		return nil
	}, backoff.WithContext(policy, d.ctx))
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", d.port, err)
	}

	d.connected = true
	d.used = true

	go d.readSamples(d.ctx, d.conn, d.samples, d.done)

	return nil
}

// Close closes the connection and the samples channel.
func (d *Serial) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected {
		return nil
	}

	d.cancel()

	if d.conn != nil {
		if err := d.conn.Close(); err != nil {
			log.Printf("Error closing serial port: %v", err)
		}
		d.conn = nil
	}

	d.connected = false

	// The reader is the only sender and closes the channel on its way out.
	<-d.done

	return nil
}

// Samples returns the channel for reading samples. It is closed by Close or
// when the board stops sending. Every Connect after a Close starts a new
// channel.
func (d *Serial) Samples() <-chan RawSample {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.samples
}

// IsConnected returns whether the port is open.
func (d *Serial) IsConnected() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.connected
}

// Send writes a single command line to the board.
func (d *Serial) Send(cmd string) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.connected {
		return ErrNotConnected
	}

	if _, err := io.WriteString(d.conn, cmd+"\n"); err != nil {
		return fmt.Errorf("failed to send command %q: %w", cmd, err)
	}
	return nil
}

// readSamples reads lines from the port and parses them into RawSample.
func (d *Serial) readSamples(ctx context.Context, src io.Reader, samples chan<- RawSample, done chan<- struct{}) {
	defer close(done)
	defer close(samples)
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Panic in readSamples: %v", r)
		}
	}()

	scanner := bufio.NewScanner(src)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if !scanner.Scan() {
			if err := scanner.Err(); err != nil && ctx.Err() == nil {
				log.Printf("Error reading from serial port: %v", err)
			}
			return
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		sample, err := parseLine(line)
		if err != nil {
			log.Printf("Failed to parse line '%s': %v", line, err)
			continue
		}

		select {
		case samples <- sample:
		case <-ctx.Done():
			return
		}
	}
}

// parseLine parses a line from the board into a RawSample.
// Format: micros,pressure_pa,ax,ay,az
func parseLine(line string) (RawSample, error) {
	parts := strings.Split(line, ",")
	if len(parts) != 5 {
		return RawSample{}, fmt.Errorf("invalid line format: expected 5 comma-separated values, got %d", len(parts))
	}

	micros, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return RawSample{}, fmt.Errorf("invalid timestamp: %w", err)
	}

	pressure, err := strconv.ParseFloat(parts[1], 32)
	if err != nil {
		return RawSample{}, fmt.Errorf("invalid pressure: %w", err)
	}
	if pressure <= 0 || pressure > 200000 {
		return RawSample{}, fmt.Errorf("pressure out of range: %g Pa", pressure)
	}

	var accel [3]int16
	for i, field := range parts[2:] {
		v, err := strconv.ParseInt(field, 10, 16)
		if err != nil {
			return RawSample{}, fmt.Errorf("invalid acceleration axis %d: %w", i, err)
		}
		accel[i] = int16(v)
	}

	return RawSample{
		Timestamp: uint32(micros),
		Pressure:  float32(pressure),
		AccelX:    accel[0],
		AccelY:    accel[1],
		AccelZ:    accel[2],
	}, nil
}
