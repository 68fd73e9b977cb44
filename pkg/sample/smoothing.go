package sample

import (
	"log"
	"time"

	"github.com/itohio/gofar/pkg/config"
	"github.com/itohio/gofar/pkg/sensor"
)

// NewSmoothingConverter creates a converter that outputs, for every input
// sample, the moving average of the last windowSize converted samples. The
// timestamp is the one of the newest sample.
func NewSmoothingConverter(cfg *config.SensorConfig, windowSize int, bufSize int) Converter {
	if windowSize <= 1 {
		return NewConverter(cfg, bufSize)
	}
	if bufSize <= 0 {
		bufSize = 100
	}

	return func(in <-chan sensor.RawSample) <-chan Sample {
		out := make(chan Sample, bufSize)

		go func() {
			defer close(out)

			buffer := make([]Sample, 0, windowSize+1)
			for raw := range in {
				sample, err := Convert(raw, cfg)
				if err != nil {
					log.Printf("Failed to convert sample: %v", err)
					continue
				}

				buffer = append(buffer, sample)
				if len(buffer) > windowSize {
					buffer = append(buffer[:0], buffer[1:]...)
				}

				select {
				case out <- average(buffer):
				case <-time.After(time.Second):
					log.Printf("Smoothing converter output channel full, dropping sample")
				}
			}
		}()

		return out
	}
}

// average averages pressure and acceleration over samples.
func average(samples []Sample) Sample {
	if len(samples) == 0 {
		return Sample{}
	}

	var sumPressure, sumAcceleration float64
	for _, s := range samples {
		sumPressure += s.Pressure
		sumAcceleration += s.Acceleration
	}

	n := float64(len(samples))
	return Sample{
		Timestamp:    samples[len(samples)-1].Timestamp,
		Pressure:     sumPressure / n,
		Acceleration: sumAcceleration / n,
	}
}

// NewPipeline picks the plain or smoothing converter based on configuration.
func NewPipeline(cfg *config.SensorConfig, bufSize int) Converter {
	if cfg.Smoothing > 1 {
		return NewSmoothingConverter(cfg, cfg.Smoothing, bufSize)
	}
	return NewConverter(cfg, bufSize)
}
