package flight

// State is a flight phase.
type State int

const (
	Idle State = iota
	// EstablishGroundPressure averages pressure until it is stable enough to be
	// used as the ground reference.
	EstablishGroundPressure
	WaitForLaunch
	// AccelerationDetected means acceleration crossed the launch threshold but has
	// not been sustained long enough to count as a launch.
	AccelerationDetected
	Accelerating
	// Launched is entered once the pressure dropped far enough below ground level.
	Launched
	Burnout
	Separation
	Coasting
	Falling
	MeasureFallingPressure1
	MeasureFallingPressure2
	MeasureFallingPressure3
	DrogueOpened
	DrogueFailed
	Landed
)

var stateNames = [...]string{
	Idle:                    "IDLE",
	EstablishGroundPressure: "ESTABLISH_GROUND_PRESSURE",
	WaitForLaunch:           "WAIT_FOR_LAUNCH",
	AccelerationDetected:    "ACCELERATION_DETECTED",
	Accelerating:            "ACCELERATING",
	Launched:                "LAUNCHED",
	Burnout:                 "BURNOUT",
	Separation:              "SEPARATION",
	Coasting:                "COASTING",
	Falling:                 "FALLING",
	MeasureFallingPressure1: "MEASURE_FALLING_PRESSURE1",
	MeasureFallingPressure2: "MEASURE_FALLING_PRESSURE2",
	MeasureFallingPressure3: "MEASURE_FALLING_PRESSURE3",
	DrogueOpened:            "DROGUE_OPENED",
	DrogueFailed:            "DROGUE_FAILED",
	Landed:                  "LANDED",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "UNKNOWN"
	}
	return stateNames[s]
}

// States returns all flight phases in declaration order.
func States() []State {
	states := make([]State, len(stateNames))
	for i := range states {
		states[i] = State(i)
	}
	return states
}

// Event is a trigger derived from a sensor sample and the calibration state.
type Event int

const (
	GroundPressureEstablished Event = iota
	// PressureBelowLaunchThreshold fires when ground pressure minus measured
	// pressure reaches the launch differential, i.e. the vehicle is high enough.
	PressureBelowLaunchThreshold
	PressureAboveLaunchThreshold
	PressurePeakReached
	AccelerationBelowThreshold
	AccelerationAboveThreshold
	// AccelerationAroundZero means the accelerometer magnitude is close to zero:
	// motor burnout or free fall.
	AccelerationAroundZero
	ExpectedApogeeTimeReached
	PressureDropLinear
	PressureDropQuadratic
	RestartPressureMeasurement
)

var eventNames = [...]string{
	GroundPressureEstablished:    "GROUND_PRESSURE_ESTABLISHED",
	PressureBelowLaunchThreshold: "PRESSURE_BELOW_LAUNCH_THRESHOLD",
	PressureAboveLaunchThreshold: "PRESSURE_ABOVE_LAUNCH_THRESHOLD",
	PressurePeakReached:          "PRESSURE_PEAK_REACHED",
	AccelerationBelowThreshold:   "ACCELERATION_BELOW_THRESHOLD",
	AccelerationAboveThreshold:   "ACCELERATION_ABOVE_THRESHOLD",
	AccelerationAroundZero:       "ACCELERATION_AROUND_ZERO",
	ExpectedApogeeTimeReached:    "EXPECTED_APOGEE_TIME_REACHED",
	PressureDropLinear:           "PRESSURE_LINEAR",
	PressureDropQuadratic:        "PRESSURE_QUADRATIC",
	RestartPressureMeasurement:   "RESTART_PRESSURE_MEASUREMENT",
}

func (e Event) String() string {
	if e < 0 || int(e) >= len(eventNames) {
		return "UNKNOWN"
	}
	return eventNames[e]
}

// Events returns all events in declaration order.
func Events() []Event {
	events := make([]Event, len(eventNames))
	for i := range events {
		events[i] = Event(i)
	}
	return events
}
