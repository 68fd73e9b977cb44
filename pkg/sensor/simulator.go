package sensor

import (
	"math"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/itohio/gofar/pkg/config"
)

// StandardGravity in m/s².
const StandardGravity = 9.80665

type phase int

const (
	onPad phase = iota
	burning
	coasting
	descending
	touchedDown
)

// Simulator generates a deterministic ballistic flight: some time on the pad,
// a constant thrust burn, coast to apogee, a descent either under drogue at a
// constant velocity or in free fall, and finally resting on the ground.
//
// The accelerometer reports specific force along the z axis, so it reads 1 g
// on the ground and under a fully open drogue, and zero in free fall.
type Simulator struct {
	cfg        config.SimulationConfig
	countsPerG float64
	noise      *distuv.Uniform

	micros  uint32
	elapsed time.Duration
	phase   phase

	altitude float64 // m
	velocity float64 // m/s
	apogee   float64
}

// NewSimulator creates a simulator. countsPerG scales the accelerometer output.
// A non-positive sample rate is replaced by the default one.
func NewSimulator(cfg config.SimulationConfig, countsPerG float64) *Simulator {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = config.Default().Simulation.SampleRate
	}
	s := &Simulator{
		cfg:        cfg,
		countsPerG: countsPerG,
		micros:     cfg.StartMicros,
	}
	if cfg.PressureNoise > 0 {
		s.noise = &distuv.Uniform{
			Min: -cfg.PressureNoise,
			Max: cfg.PressureNoise,
			Src: rand.NewPCG(uint64(cfg.Seed), 0),
		}
	}
	return s
}

// Next returns the sample at the current simulation time and advances the
// simulation by one sample period.
func (s *Simulator) Next() RawSample {
	s.updatePhase()
	accel, sensed := s.forces()

	pressure := Pressure(s.cfg.GroundPressure, s.altitude)
	if s.noise != nil {
		pressure += s.noise.Rand()
	}
	sample := RawSample{
		Timestamp: s.micros,
		Pressure:  float32(pressure),
		AccelZ:    s.counts(sensed),
	}

	s.integrate(accel)
	return sample
}

// Altitude returns the current height above the pad in meters.
func (s *Simulator) Altitude() float64 {
	return s.altitude
}

// Apogee returns the highest altitude reached so far.
func (s *Simulator) Apogee() float64 {
	return s.apogee
}

// Landed reports whether the vehicle is back on the ground.
func (s *Simulator) Landed() bool {
	return s.phase == touchedDown
}

// Elapsed returns the simulation time since power on.
func (s *Simulator) Elapsed() time.Duration {
	return s.elapsed
}

func (s *Simulator) updatePhase() {
	switch s.phase {
	case onPad:
		if s.elapsed >= s.cfg.PadTime {
			s.phase = burning
		}
	case burning:
		if s.elapsed >= s.cfg.PadTime+s.cfg.BurnTime {
			s.phase = coasting
		}
	case coasting:
		if s.velocity <= 0 {
			s.phase = descending
		}
	}
}

// forces returns the kinematic acceleration and the specific force the
// accelerometer senses, both in m/s².
func (s *Simulator) forces() (accel, sensed float64) {
	switch s.phase {
	case burning:
		return s.cfg.Thrust, s.cfg.Thrust + StandardGravity
	case coasting:
		return -StandardGravity, 0
	case descending:
		if !s.cfg.DrogueFails && s.velocity <= -s.cfg.DrogueVelocity {
			return 0, StandardGravity
		}
		return -StandardGravity, 0
	default:
		return 0, StandardGravity
	}
}

func (s *Simulator) integrate(accel float64) {
	dt := s.cfg.SampleRate
	if s.phase != onPad && s.phase != touchedDown {
		step := dt.Seconds()
		s.velocity += accel * step
		if s.phase == descending && !s.cfg.DrogueFails {
			s.velocity = math.Max(s.velocity, -s.cfg.DrogueVelocity)
		}
		s.altitude += s.velocity * step
		s.apogee = math.Max(s.apogee, s.altitude)
		if s.phase == descending && s.altitude <= 0 {
			s.altitude, s.velocity = 0, 0
			s.phase = touchedDown
		}
	}

	s.micros += uint32(dt / time.Microsecond)
	s.elapsed += dt
}

func (s *Simulator) counts(sensed float64) int16 {
	c := math.Round(sensed / StandardGravity * s.countsPerG)
	return int16(math.Max(math.MinInt16, math.Min(math.MaxInt16, c)))
}

// Pressure returns the pressure in Pa at altitude meters above a point with
// ground pressure p0, using the international barometric formula.
func Pressure(p0, altitude float64) float64 {
	return p0 * math.Pow(1-2.25577e-5*altitude, 5.25588)
}
