package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// MaxChannels is the number of analog inputs a CT board can carry.
const MaxChannels = 4

// DefaultReference is the mid-rail zero-current voltage of a 3.3V system.
const DefaultReference = 1.65

var (
	ErrInvalidChannels    = errors.New("sensor.channels must be between 1 and 4")
	ErrInvalidFrequency   = errors.New("sensor.sampling_frequency_hz must be positive")
	ErrInvalidPeriod      = errors.New("sensor.sampling_period_seconds must be positive")
	ErrInvalidReferences  = errors.New("sensor.references must hold one positive voltage per channel")
	ErrInvalidMaxCurrent  = errors.New("sensor.max_current_input must be positive")
	ErrInvalidSerialRange = errors.New("serial.resolution_bits must be between 1 and 16")
	ErrInvalidCalibration = errors.New("sensor.calibration_data_points must be at least 1")
)

// Config represents the application configuration.
type Config struct {
	Serial      SerialConfig      `yaml:"serial"`
	Sensor      SensorConfig      `yaml:"sensor"`
	Measurement MeasurementConfig `yaml:"measurement"`
	Log         LogConfig         `yaml:"log"`
	Mock        MockConfig        `yaml:"mock"`
	MQTT        MQTTConfig        `yaml:"mqtt"`
}

// SerialConfig contains serial port configuration of the ADC streamer.
type SerialConfig struct {
	Port           string  `yaml:"port"`
	BaudRate       int     `yaml:"baud_rate"`
	VRef           float64 `yaml:"vref"`            // ADC reference voltage (V)
	ResolutionBits int     `yaml:"resolution_bits"` // ADC counts are 0..2^bits-1
}

// SensorConfig describes the CT sensor board. It is fixed once a sensor is built.
type SensorConfig struct {
	Channels              int       `yaml:"channels"`
	SamplingPeriodSeconds int       `yaml:"sampling_period_seconds"`
	SamplingFrequencyHz   int       `yaml:"sampling_frequency_hz"`
	MaxCurrentInput       float64   `yaml:"max_current_input"` // Rated RMS current of the CT (A)
	RefVoltageInput       float64   `yaml:"ref_voltage_input"` // Nominal grid voltage (V)
	CurrentNoiseLevel     float64   `yaml:"current_noise_level"`
	SkipSamplingDelay     bool      `yaml:"skip_sampling_delay"`
	ReadDelayMs           int       `yaml:"read_delay_ms"` // Delay after every single-channel read
	CalibrationDataPoints int       `yaml:"calibration_data_points"`
	References            []float64 `yaml:"references"` // Zero-current voltage per channel
	Debug                 bool      `yaml:"debug"`
}

// MeasurementConfig contains parameters of the host control loop.
type MeasurementConfig struct {
	PassPause time.Duration `yaml:"pass_pause"` // Pause between sampling passes
}

// LogConfig contains logger parameters.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// MockConfig contains mock ADC configuration.
type MockConfig struct {
	Bias          float64       `yaml:"bias"`           // Zero-current voltage (V)
	Amplitudes    []float64     `yaml:"amplitudes"`     // Peak signal voltage per channel (V), missing channels are silent
	LineFrequency float64       `yaml:"line_frequency"` // Simulated mains frequency (Hz)
	PhaseDegrees  float64       `yaml:"phase_degrees"`  // Phase of the first sample
	NoiseLevel    float64       `yaml:"noise_level"`    // Noise level (V)
	Realtime      bool          `yaml:"realtime"`       // Sleep on delays instead of only advancing the clock
	ReadTime      time.Duration `yaml:"read_time"`      // Simulated conversion time per read
}

// MQTTConfig contains broker parameters. Publishing is disabled when Host is empty.
type MQTTConfig struct {
	Host      string        `yaml:"host"`
	Port      int           `yaml:"port"`
	Username  string        `yaml:"username"`
	Password  string        `yaml:"password"`
	BaseTopic string        `yaml:"base_topic"`
	Timeout   time.Duration `yaml:"timeout"`
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Port:           "COM3", // Default for Windows, should be "/dev/ttyACM0" on Linux/Mac
			BaudRate:       115200,
			VRef:           3.3,
			ResolutionBits: 12,
		},
		Sensor: SensorConfig{
			Channels:              MaxChannels,
			SamplingPeriodSeconds: 1,
			SamplingFrequencyHz:   100,
			MaxCurrentInput:       100,
			RefVoltageInput:       230,
			CurrentNoiseLevel:     0.05,
			SkipSamplingDelay:     false,
			ReadDelayMs:           0,
			CalibrationDataPoints: 10,
			References:            nil, // mid-rail until calibrated
		},
		Measurement: MeasurementConfig{
			PassPause: 0,
		},
		Log: LogConfig{
			Level: "info",
		},
		Mock: MockConfig{
			Bias:          DefaultReference,
			Amplitudes:    []float64{0.2, 0.1, 0.05, 0},
			LineFrequency: 50,
			PhaseDegrees:  45, // 100 Hz sampling of 50 Hz mains hits the zero crossings otherwise
			NoiseLevel:    0.001,
		},
		MQTT: MQTTConfig{
			Port:      1883,
			BaseTopic: "goct",
			Timeout:   5 * time.Second,
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

// Validate checks the invariants the sampling engine relies on.
func (c *Config) Validate() error {
	if err := c.Sensor.Validate(); err != nil {
		return err
	}
	if c.Serial.ResolutionBits < 1 || c.Serial.ResolutionBits > 16 {
		return ErrInvalidSerialRange
	}
	return nil
}

// Validate checks the sensor section alone.
func (s *SensorConfig) Validate() error {
	if s.Channels < 1 || s.Channels > MaxChannels {
		return fmt.Errorf("%w: got %d", ErrInvalidChannels, s.Channels)
	}
	if s.SamplingFrequencyHz <= 0 {
		return ErrInvalidFrequency
	}
	if s.SamplingPeriodSeconds <= 0 {
		return ErrInvalidPeriod
	}
	if s.MaxCurrentInput <= 0 {
		return ErrInvalidMaxCurrent
	}
	if s.CalibrationDataPoints < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidCalibration, s.CalibrationDataPoints)
	}
	if s.References != nil {
		if len(s.References) != s.Channels {
			return fmt.Errorf("%w: got %d values for %d channels", ErrInvalidReferences, len(s.References), s.Channels)
		}
		for i, v := range s.References {
			if !ValidReference(v) {
				return fmt.Errorf("%w: channel %d is %v", ErrInvalidReferences, i, v)
			}
		}
	}
	return nil
}

// ValidReference reports whether v can serve as a zero-current voltage.
// NaN and infinities are rejected along with non-positive values.
func ValidReference(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Serial.Port == "" {
		c.Serial.Port = def.Serial.Port
	}
	if c.Serial.BaudRate == 0 {
		c.Serial.BaudRate = def.Serial.BaudRate
	}
	if c.Serial.VRef == 0 {
		c.Serial.VRef = def.Serial.VRef
	}
	if c.Serial.ResolutionBits == 0 {
		c.Serial.ResolutionBits = def.Serial.ResolutionBits
	}

	if c.Sensor.Channels == 0 {
		c.Sensor.Channels = def.Sensor.Channels
	}
	if c.Sensor.SamplingPeriodSeconds == 0 {
		c.Sensor.SamplingPeriodSeconds = def.Sensor.SamplingPeriodSeconds
	}
	if c.Sensor.SamplingFrequencyHz == 0 {
		c.Sensor.SamplingFrequencyHz = def.Sensor.SamplingFrequencyHz
	}
	if c.Sensor.MaxCurrentInput == 0 {
		c.Sensor.MaxCurrentInput = def.Sensor.MaxCurrentInput
	}
	if c.Sensor.RefVoltageInput == 0 {
		c.Sensor.RefVoltageInput = def.Sensor.RefVoltageInput
	}
	if c.Sensor.CurrentNoiseLevel == 0 {
		c.Sensor.CurrentNoiseLevel = def.Sensor.CurrentNoiseLevel
	}
	if c.Sensor.CalibrationDataPoints == 0 {
		c.Sensor.CalibrationDataPoints = def.Sensor.CalibrationDataPoints
	}

	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}

	if c.Mock.Bias == 0 {
		c.Mock.Bias = def.Mock.Bias
	}
	if c.Mock.LineFrequency == 0 {
		c.Mock.LineFrequency = def.Mock.LineFrequency
	}

	if c.MQTT.Port == 0 {
		c.MQTT.Port = def.MQTT.Port
	}
	if c.MQTT.BaseTopic == "" {
		c.MQTT.BaseTopic = def.MQTT.BaseTopic
	}
	if c.MQTT.Timeout == 0 {
		c.MQTT.Timeout = def.MQTT.Timeout
	}
}
