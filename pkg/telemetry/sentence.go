// Package telemetry formats flight data as NMEA-style sentences for the
// downlink and the on-board log.
//
// Every sentence starts with '$', carries a time of day derived from the board
// clock and ends with '*', a two digit hex XOR checksum of the characters in
// between, and CRLF:
//
//	$RQSTATE,000012.3456,LAUNCHED,1003.125*57
//	$RQMET0,000012.3500,1002.980,29.81*58
//	$RQEVNT,000012.3500,PRESSURE_PEAK_REACHED*67
package telemetry

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/itohio/gofar/pkg/flight"
)

var (
	ErrMalformed = errors.New("malformed sentence")
	ErrChecksum  = errors.New("checksum mismatch")
)

// Clock turns the wrapping 32-bit board counter into a monotonic time since
// power on. Timestamps must be fed in order and less than one counter period
// apart.
type Clock struct {
	base    time.Duration
	last    flight.Timestamp
	started bool
}

const counterPeriod = time.Duration(1<<32) * time.Microsecond

// Time returns the time since power on for ts.
func (c *Clock) Time(ts flight.Timestamp) time.Duration {
	if c.started && ts < c.last {
		c.base += counterPeriod
	}
	c.started = true
	c.last = ts
	return c.base + time.Duration(ts)*time.Microsecond
}

// TimeOfDay formats d as hhmmss.ffff with a resolution of 100µs.
func TimeOfDay(d time.Duration) string {
	seconds := int64(d / time.Second)
	fraction := int64(d%time.Second) / int64(100*time.Microsecond)
	return fmt.Sprintf("%02d%02d%02d.%04d", seconds/3600, seconds%3600/60, seconds%60, fraction)
}

// Checksum is the XOR of all bytes of body.
func Checksum(body string) byte {
	var cs byte
	for i := 0; i < len(body); i++ {
		cs ^= body[i]
	}
	return cs
}

func sentence(fields ...string) string {
	body := strings.Join(fields, ",")
	return fmt.Sprintf("$%s*%02X\r\n", body, Checksum(body))
}

// StateSentence reports a state change and the pressure in mbar at that time.
func StateSentence(at time.Duration, s flight.State, pressure float64) string {
	return sentence("RQSTATE", TimeOfDay(at), s.String(), strconv.FormatFloat(pressure, 'f', 3, 64))
}

// DataSentence reports pressure in mbar and acceleration in m/s².
func DataSentence(at time.Duration, pressure, acceleration float64) string {
	return sentence("RQMET0", TimeOfDay(at),
		strconv.FormatFloat(pressure, 'f', 3, 64),
		strconv.FormatFloat(acceleration, 'f', 2, 64))
}

// EventSentence reports a derived event.
func EventSentence(at time.Duration, e flight.Event) string {
	return sentence("RQEVNT", TimeOfDay(at), e.String())
}

// Verify checks framing and checksum and returns the comma separated fields.
func Verify(s string) ([]string, error) {
	s = strings.TrimRight(s, "\r\n")
	star := strings.LastIndexByte(s, '*')
	if !strings.HasPrefix(s, "$") || star < 0 || len(s)-star != 3 {
		return nil, fmt.Errorf("%q: %w", s, ErrMalformed)
	}

	body := s[1:star]
	want, err := strconv.ParseUint(s[star+1:], 16, 8)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", s, ErrMalformed)
	}
	if got := Checksum(body); got != byte(want) {
		return nil, fmt.Errorf("%q: got %02X, want %02X: %w", s, got, want, ErrChecksum)
	}
	return strings.Split(body, ","), nil
}
