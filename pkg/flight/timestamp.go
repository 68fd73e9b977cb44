package flight

import "time"

// Timestamp is a 32-bit microsecond counter as delivered by the flight board. It
// wraps after about 71.6 minutes.
type Timestamp uint32

// Sub returns t-earlier. The subtraction is done modulo 2^32, so it stays correct
// across a single wrap of the counter as long as less than one full period passed.
func (t Timestamp) Sub(earlier Timestamp) time.Duration {
	return time.Duration(uint32(t-earlier)) * time.Microsecond
}

// Add returns t+d, wrapping like the hardware counter does.
func (t Timestamp) Add(d time.Duration) Timestamp {
	return t + Timestamp(uint32(d/time.Microsecond))
}
