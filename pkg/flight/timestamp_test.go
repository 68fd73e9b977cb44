package flight

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimestamp_Sub(t *testing.T) {
	tests := []struct {
		name           string
		later, earlier Timestamp
		want           time.Duration
	}{
		{"zero", 42, 42, 0},
		{"forward", 1_500_000, 500_000, time.Second},
		{"across wrap", 99, Timestamp(^uint32(0)), 100 * time.Microsecond},
		{"wrap to zero", 0, Timestamp(^uint32(0) - 9), 10 * time.Microsecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.later.Sub(tt.earlier))
		})
	}
}

func TestTimestamp_AddWraps(t *testing.T) {
	ts := Timestamp(^uint32(0) - 499_999)
	later := ts.Add(time.Second)
	assert.Equal(t, Timestamp(500_000), later)
	assert.Equal(t, time.Second, later.Sub(ts))
}
