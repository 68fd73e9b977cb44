package sample

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/gofar/pkg/config"
	"github.com/itohio/gofar/pkg/flight"
	"github.com/itohio/gofar/pkg/sensor"
)

func collect(t *testing.T, c Converter, raws []sensor.RawSample) []Sample {
	t.Helper()
	input := make(chan sensor.RawSample, len(raws))
	for _, r := range raws {
		input <- r
	}
	close(input)

	var out []Sample
	for s := range c(input) {
		out = append(out, s)
	}
	return out
}

func TestSmoothingConverter_MovingAverage(t *testing.T) {
	cfg := &config.SensorConfig{CountsPerG: 1000}
	raws := []sensor.RawSample{
		{Timestamp: 10, Pressure: 100000, AccelZ: 1000},
		{Timestamp: 20, Pressure: 100300, AccelZ: 2000},
		{Timestamp: 30, Pressure: 100600, AccelZ: 3000},
		{Timestamp: 40, Pressure: 100900, AccelZ: 0},
	}

	got := collect(t, NewSmoothingConverter(cfg, 3, 0), raws)
	require.Len(t, got, 4)

	// Partial windows average what is there.
	assert.InDelta(t, 1000, got[0].Pressure, 1e-9)
	assert.InDelta(t, 1001.5, got[1].Pressure, 1e-9)
	assert.InDelta(t, 1003, got[2].Pressure, 1e-9)
	assert.InDelta(t, 1006, got[3].Pressure, 1e-9)

	g := float64(StandardGravity)
	assert.InDelta(t, 2*g, got[2].Acceleration, 1e-5)
	assert.InDelta(t, 5.0/3*g, got[3].Acceleration, 1e-5)

	for i, s := range got {
		assert.Equal(t, flight.Timestamp(raws[i].Timestamp), s.Timestamp)
	}
}

func TestSmoothingConverter_WindowOfOneIsPlain(t *testing.T) {
	cfg := &config.SensorConfig{CountsPerG: 1000}
	raws := []sensor.RawSample{
		{Timestamp: 1, Pressure: 100000},
		{Timestamp: 2, Pressure: 90000},
	}

	got := collect(t, NewSmoothingConverter(cfg, 1, 0), raws)
	require.Len(t, got, 2)
	assert.InDelta(t, 900, got[1].Pressure, 1e-9)
}

func TestNewPipeline(t *testing.T) {
	raws := []sensor.RawSample{
		{Timestamp: 1, Pressure: 100000},
		{Timestamp: 2, Pressure: 100200},
	}

	plain := collect(t, NewPipeline(&config.SensorConfig{CountsPerG: 1000}, 0), raws)
	smoothed := collect(t, NewPipeline(&config.SensorConfig{CountsPerG: 1000, Smoothing: 2}, 0), raws)

	assert.InDelta(t, 1002, plain[1].Pressure, 1e-9)
	assert.InDelta(t, 1001, smoothed[1].Pressure, 1e-9)
}

func TestAverage_Empty(t *testing.T) {
	assert.Equal(t, Sample{}, average(nil))
}
