// Package sensor delivers raw barometer and accelerometer readings from the
// flight board, either over a serial link or from a simulated flight.
package sensor

import (
	"fmt"

	"go.bug.st/serial"
)

const (
	// DefaultBaudRate is the baud rate of the flight board's USB serial.
	DefaultBaudRate = 115200
	// DefaultBufferSize is the default size for the samples channel buffer.
	DefaultBufferSize = 100
)

// RawSample is one reading as reported by the board.
type RawSample struct {
	Timestamp uint32  // Board microsecond counter, wraps after ~71 minutes
	Pressure  float32 // Pa
	AccelX    int16   // Accelerometer counts
	AccelY    int16
	AccelZ    int16
}

// Source is a producer of raw samples (real or simulated).
type Source interface {
	Connect() error
	Close() error
	Samples() <-chan RawSample
	IsConnected() bool
}

var (
	_ Source = (*Serial)(nil)
	_ Source = (*Mock)(nil)
)

// Port represents a serial port.
type Port struct {
	Name        string
	Description string
}

// Ports returns a list of available serial ports.
func Ports() ([]Port, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	result := make([]Port, 0, len(ports))
	for _, name := range ports {
		result = append(result, Port{Name: name, Description: name})
	}
	return result, nil
}
