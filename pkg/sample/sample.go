package sample

import (
	"fmt"
	"log"
	"time"

	"github.com/chewxy/math32"

	"github.com/itohio/gofar/pkg/config"
	"github.com/itohio/gofar/pkg/flight"
	"github.com/itohio/gofar/pkg/sensor"
)

const (
	// PascalPerMillibar converts barometer output to the unit the flight
	// controller works in.
	PascalPerMillibar = 100
	// StandardGravity in m/s².
	StandardGravity = float32(sensor.StandardGravity)
)

// Sample is a reading in physical units.
type Sample struct {
	Timestamp    flight.Timestamp
	Pressure     float64 // mbar
	Acceleration float64 // Magnitude of the specific force (m/s²)
}

// Converter is a function type that converts RawSample channel to Sample channel.
type Converter func(in <-chan sensor.RawSample) <-chan Sample

// NewConverter creates a converter function that transforms RawSample to Sample.
func NewConverter(cfg *config.SensorConfig, bufSize int) Converter {
	if bufSize <= 0 {
		bufSize = 100
	}

	return func(in <-chan sensor.RawSample) <-chan Sample {
		out := make(chan Sample, bufSize)

		go func() {
			defer close(out)

			for raw := range in {
				sample, err := Convert(raw, cfg)
				if err != nil {
					log.Printf("Failed to convert sample: %v", err)
					continue
				}

				select {
				case out <- sample:
				case <-time.After(time.Second):
					log.Printf("Converter output channel full, dropping sample")
				}
			}
		}()

		return out
	}
}

// Convert converts a RawSample to physical units. The accelerometer only
// contributes its magnitude since the board orientation changes in flight.
func Convert(raw sensor.RawSample, cfg *config.SensorConfig) (Sample, error) {
	if cfg.CountsPerG <= 0 {
		return Sample{}, fmt.Errorf("counts per g must be positive, got %g", cfg.CountsPerG)
	}

	return Sample{
		Timestamp:    flight.Timestamp(raw.Timestamp),
		Pressure:     float64(raw.Pressure) / PascalPerMillibar,
		Acceleration: float64(magnitude(raw) / float32(cfg.CountsPerG) * StandardGravity),
	}, nil
}

func magnitude(raw sensor.RawSample) float32 {
	x := float32(raw.AccelX)
	y := float32(raw.AccelY)
	z := float32(raw.AccelZ)
	return math32.Sqrt(x*x + y*y + z*z)
}
