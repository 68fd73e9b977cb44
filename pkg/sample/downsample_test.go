package sample

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/gofar/pkg/flight"
)

func TestDownsample_NoDownsampling(t *testing.T) {
	samples := []Sample{
		{Timestamp: 0, Pressure: 1013.25, Acceleration: 9.8},
		{Timestamp: 10_000, Pressure: 1013.2, Acceleration: 29.8},
		{Timestamp: 20_000, Pressure: 1013.1, Acceleration: 29.8},
	}

	result := Downsample(nil, samples, 10)
	assert.Equal(t, samples, result)

	// Test with sufficient capacity dst
	dst := make([]Sample, 0, 10)
	result = Downsample(dst, samples, 10)
	assert.Equal(t, samples, result)
	assert.Equal(t, cap(dst), cap(result))

	// The copy does not alias the source.
	result[0].Pressure = 0
	assert.Equal(t, 1013.25, samples[0].Pressure)
}

func TestDownsample_WithDownsampling(t *testing.T) {
	samples := make([]Sample, 100)
	for i := range samples {
		samples[i] = Sample{Timestamp: flight.Timestamp(i * 10_000), Pressure: 1000 - float64(i)*0.1}
	}

	dst := make([]Sample, 0, 20)
	result := Downsample(dst, samples, 10)
	require.Len(t, result, 10)
	assert.Equal(t, cap(dst), cap(result))
	for i, s := range result {
		assert.Equal(t, samples[i*10], s)
	}

	result = Downsample(nil, samples, 7)
	require.Len(t, result, 7)
	assert.Equal(t, samples[0], result[0])
	assert.Equal(t, samples[14], result[1])
}

func TestDownsample_Floats(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6}
	assert.Equal(t, []float64{1, 3, 5}, Downsample(nil, values, 3))
	assert.Empty(t, Downsample(nil, values, 0))
}
