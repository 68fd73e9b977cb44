package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Serial     SerialConfig     `yaml:"serial"`
	Sensor     SensorConfig     `yaml:"sensor"`
	Simulation SimulationConfig `yaml:"simulation"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Reactions  ReactionsConfig  `yaml:"reactions"`
}

// SerialConfig contains serial port configuration.
type SerialConfig struct {
	Port           string `yaml:"port"`
	BaudRate       int    `yaml:"baud_rate"`
	ConnectRetries uint64 `yaml:"connect_retries"` // Attempts after the first failed open
}

// SensorConfig describes how raw board readings are converted.
type SensorConfig struct {
	CountsPerG float64 `yaml:"counts_per_g"` // Accelerometer counts per g (1000 or 2048 depending on the board)
	Smoothing  int     `yaml:"smoothing"`    // Moving average length (0 = disabled, default)
}

// SimulationConfig contains parameters of the simulated flight.
type SimulationConfig struct {
	SampleRate     time.Duration `yaml:"sample_rate"`
	PadTime        time.Duration `yaml:"pad_time"`        // Time on the pad before ignition
	GroundPressure float64       `yaml:"ground_pressure"` // Pa
	Thrust         float64       `yaml:"thrust"`          // Net acceleration during the burn (m/s²)
	BurnTime       time.Duration `yaml:"burn_time"`
	DrogueVelocity float64       `yaml:"drogue_velocity"` // Terminal descent velocity under drogue (m/s)
	DrogueFails    bool          `yaml:"drogue_fails"`
	PressureNoise  float64       `yaml:"pressure_noise"` // Pa, uniform
	Seed           int64         `yaml:"seed"`
	StartMicros    uint32        `yaml:"start_micros"` // Board counter value at power on
}

// TelemetryConfig contains telemetry sentence output configuration.
type TelemetryConfig struct {
	Enabled   bool `yaml:"enabled"`
	DataEvery int  `yaml:"data_every"` // Emit one data sentence per this many samples
}

// ReactionsConfig enables actuator reactions to state changes.
type ReactionsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Port:           "/dev/ttyACM0",
			BaudRate:       115200,
			ConnectRetries: 5,
		},
		Sensor: SensorConfig{
			CountsPerG: 2048,
			Smoothing:  0,
		},
		Simulation: SimulationConfig{
			SampleRate:     10 * time.Millisecond, // 100 Hz
			PadTime:        5 * time.Second,
			GroundPressure: 101325,
			Thrust:         20,
			BurnTime:       2500 * time.Millisecond,
			DrogueVelocity: 15,
			DrogueFails:    false,
			PressureNoise:  0,
			Seed:           1,
			StartMicros:    0,
		},
		Telemetry: TelemetryConfig{
			Enabled:   true,
			DataEvery: 10,
		},
		Reactions: ReactionsConfig{
			Enabled: true,
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ensureDefaults replaces values that must be positive.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Serial.Port == "" {
		c.Serial.Port = def.Serial.Port
	}
	if c.Serial.BaudRate <= 0 {
		c.Serial.BaudRate = def.Serial.BaudRate
	}

	if c.Sensor.CountsPerG <= 0 {
		c.Sensor.CountsPerG = def.Sensor.CountsPerG
	}
	if c.Sensor.Smoothing < 0 {
		c.Sensor.Smoothing = 0
	}

	if c.Simulation.SampleRate <= 0 {
		c.Simulation.SampleRate = def.Simulation.SampleRate
	}
	if c.Simulation.GroundPressure <= 0 {
		c.Simulation.GroundPressure = def.Simulation.GroundPressure
	}
	if c.Simulation.Thrust <= 0 {
		c.Simulation.Thrust = def.Simulation.Thrust
	}
	if c.Simulation.BurnTime <= 0 {
		c.Simulation.BurnTime = def.Simulation.BurnTime
	}
	if c.Simulation.DrogueVelocity <= 0 {
		c.Simulation.DrogueVelocity = def.Simulation.DrogueVelocity
	}

	if c.Telemetry.DataEvery <= 0 {
		c.Telemetry.DataEvery = def.Telemetry.DataEvery
	}
}
