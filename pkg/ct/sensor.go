package ct

import (
	"errors"
	"fmt"
	"math"

	"github.com/chewxy/math32"
	"github.com/itohio/goct/pkg/config"
)

var (
	ErrNotInitialized = errors.New("sensor is not initialized")
	ErrNotReady       = errors.New("sensor is not set up")
	ErrNotCalibrated  = errors.New("zero-current reference voltage is not set")
	ErrPlatform       = errors.New("platform readings are not valid")
)

// State is the lifecycle stage of a Sensor.
type State uint8

const (
	Uninitialized State = iota
	Initialized
	Ready
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initialized:
		return "initialized"
	case Ready:
		return "ready"
	default:
		return "unknown"
	}
}

// Sensor converts raw CT readings into per-channel RMS current and keeps running
// statistics across sampling passes.
//
// A Sensor is not safe for concurrent use. StartSampling blocks until the pass
// completes.
type Sensor struct {
	cfg      config.SensorConfig
	platform Platform
	state    State

	peakCurrent     float64
	dataPointsCount int
	samplingDelayMs int

	references []float64
	stats      *Stats

	// reused between passes
	sumOfSquares []float64
}

// New creates a Sensor for the given configuration. The configuration is copied.
func New(cfg *config.SensorConfig, platform Platform) *Sensor {
	c := *cfg
	c.References = append([]float64(nil), cfg.References...)

	return &Sensor{
		cfg:      c,
		platform: platform,
		state:    Uninitialized,
	}
}

// Init validates the configuration and derives the sampling constants.
func (s *Sensor) Init() error {
	if err := s.cfg.Validate(); err != nil {
		return fmt.Errorf("init: %w", err)
	}

	s.peakCurrent = math.Sqrt2 * s.cfg.MaxCurrentInput
	s.dataPointsCount = s.cfg.SamplingPeriodSeconds * s.cfg.SamplingFrequencyHz
	s.samplingDelayMs = int(math32.Round(1000 / float32(s.cfg.SamplingFrequencyHz)))

	s.references = make([]float64, s.cfg.Channels)
	if len(s.cfg.References) == s.cfg.Channels {
		copy(s.references, s.cfg.References)
	} else {
		for i := range s.references {
			s.references[i] = config.DefaultReference
		}
	}

	s.sumOfSquares = make([]float64, s.cfg.Channels)
	s.state = Initialized
	return nil
}

// Setup allocates running statistics. Calling it again replaces them.
func (s *Sensor) Setup() error {
	if s.state == Uninitialized {
		return ErrNotInitialized
	}

	s.stats = NewStats(s.cfg.Channels, s.cfg.MaxCurrentInput)
	s.state = Ready
	return nil
}

// Teardown releases running statistics.
func (s *Sensor) Teardown() {
	if s.state != Ready {
		return
	}
	s.stats = nil
	s.state = Initialized
}

// Reset clears running statistics of every channel.
func (s *Sensor) Reset() error {
	s.Teardown()
	return s.Setup()
}

// State returns the lifecycle stage.
func (s *Sensor) State() State {
	return s.state
}

// StartSampling runs one sampling pass and folds its RMS values into the
// statistics.
func (s *Sensor) StartSampling() error {
	if s.state != Ready {
		return ErrNotReady
	}
	for c, ref := range s.references {
		if !config.ValidReference(ref) {
			return fmt.Errorf("%w: channel %d is %v", ErrNotCalibrated, c, ref)
		}
	}

	if err := s.platformErr(); err != nil {
		return err
	}

	for c := range s.sumOfSquares {
		s.sumOfSquares[c] = 0
	}

	s.logf("[SAMPLING] START #%d!", s.stats.Passes())

	for p := 0; p < s.dataPointsCount; p++ {
		for c, ref := range s.references {
			instant := (s.platform.RawValue(c) - ref) / ref
			s.sumOfSquares[c] += instant * instant
			if s.cfg.ReadDelayMs > 0 {
				s.platform.Delay(s.cfg.ReadDelayMs)
			}
		}
		if !s.cfg.SkipSamplingDelay {
			s.platform.Delay(s.samplingDelayMs)
		}
	}

	// a source that failed mid-pass leaves the statistics untouched
	if err := s.platformErr(); err != nil {
		return err
	}

	for c, sum := range s.sumOfSquares {
		rms := s.currentRMS(sum)
		s.logf("[CHANNEL %d] Add current RMS: %f Amps to data points", c, rms)
		s.stats.Update(c, rms)
	}

	s.stats.Advance()
	s.logf("[SAMPLING] data point count so far: %d", s.stats.Passes())
	s.logf(separator)

	return nil
}

// currentRMS converts a sum of squared normalized instants into amps.
func (s *Sensor) currentRMS(sumOfSquares float64) float64 {
	s.logf("Sum of squared instants: %f", sumOfSquares)
	s.logf("Sampling data points count: %d", s.dataPointsCount)
	s.logf("Peak current: %f", s.peakCurrent)

	rms := s.peakCurrent * math.Sqrt(sumOfSquares/float64(s.dataPointsCount))
	if rms < s.cfg.CurrentNoiseLevel {
		rms = 0.0
	}
	return rms
}

// Channels returns the configured channel count.
func (s *Sensor) Channels() int {
	return s.cfg.Channels
}

// PeakCurrent returns sqrt(2) times the rated input current.
func (s *Sensor) PeakCurrent() float64 {
	return s.peakCurrent
}

// DataPointsCount returns the number of samples per channel in one pass.
func (s *Sensor) DataPointsCount() int {
	return s.dataPointsCount
}

// SamplingDelayMs returns the pacing delay between cross-channel sweeps.
func (s *Sensor) SamplingDelayMs() int {
	return s.samplingDelayMs
}

// SamplingPeriod returns the configured pass duration in seconds.
func (s *Sensor) SamplingPeriod() int {
	return s.cfg.SamplingPeriodSeconds
}

func (s *Sensor) platformErr() error {
	c, ok := s.platform.(Checker)
	if !ok {
		return nil
	}
	if err := c.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrPlatform, err)
	}
	return nil
}

func (s *Sensor) logf(format string, args ...any) {
	if !s.cfg.Debug {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if t, ok := s.platform.(Tracer); ok {
		t.Trace(msg)
		return
	}
	s.platform.Log(msg)
}
