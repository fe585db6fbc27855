package meter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/itohio/goct/pkg/config"
	"github.com/itohio/goct/pkg/ct"
	"github.com/itohio/goct/pkg/sample"
	"go.uber.org/zap"
)

var _ CurrentMeter = (*Meter)(nil)

// ErrReferences is returned when a reference set does not fit the sensor.
var ErrReferences = errors.New("references must hold one positive voltage per channel")

// CurrentMeter drives sampling passes and publishes readings.
type CurrentMeter interface {
	Run(ctx context.Context) error
	Readings() []sample.Reading               // Latest snapshot, one reading per channel
	History(channel int) []float64            // Per-pass RMS currents, oldest first
	OnUpdate(func(readings []sample.Reading)) // Register callback for updates
}

// Meter owns a sensor and is the only caller of its passes.
// All sensor access goes through mu, so control actions land between passes.
type Meter struct {
	cfg    *config.Config
	sensor *ct.Sensor
	logger *zap.Logger
	now    func() time.Time

	mu       sync.Mutex
	readings []sample.Reading

	callbacks []func(readings []sample.Reading)
	cbMu      sync.RWMutex

	// Shutdown control
	shutdown bool // Set when Run returns, prevents further callbacks
}

// New builds the sensor on top of platform and prepares it for sampling.
func New(cfg *config.Config, platform ct.Platform, logger *zap.Logger) (*Meter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	sensor := ct.New(&cfg.Sensor, platform)
	if err := sensor.Init(); err != nil {
		return nil, err
	}
	if err := sensor.Setup(); err != nil {
		return nil, err
	}

	m := &Meter{
		cfg:    cfg,
		sensor: sensor,
		logger: logger,
		now:    time.Now,
	}
	m.readings = sample.Collect(sensor, m.now())

	logger.Info("sensor ready",
		zap.Int("channels", sensor.Channels()),
		zap.Int("data_points", sensor.DataPointsCount()),
		zap.Int("sampling_delay_ms", sensor.SamplingDelayMs()),
		zap.Float64s("references", sensor.References()),
	)

	return m, nil
}

// Run performs passes back to back until ctx is done. A pass in progress
// is never interrupted. After Run returns no callbacks fire until ResetShutdown.
func (m *Meter) Run(ctx context.Context) error {
	defer m.setShutdown()

	pause := m.cfg.Measurement.PassPause
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if _, err := m.Step(); err != nil {
			return err
		}

		if pause > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(pause):
			}
		}
	}
}

// Step performs a single pass and returns the resulting readings.
func (m *Meter) Step() ([]sample.Reading, error) {
	m.mu.Lock()
	if err := m.sensor.StartSampling(); err != nil {
		m.mu.Unlock()
		return nil, fmt.Errorf("sampling pass: %w", err)
	}
	m.readings = sample.Collect(m.sensor, m.now())
	readings := m.copyReadings()
	shouldNotify := !m.shutdown
	m.mu.Unlock()

	if ce := m.logger.Check(zap.DebugLevel, "pass complete"); ce != nil {
		currents := make([]float64, len(readings))
		for i, r := range readings {
			currents[i] = r.Current
		}
		pass := 0
		if len(readings) > 0 {
			pass = readings[0].Pass
		}
		ce.Write(zap.Int("pass", pass), zap.Float64s("currents", currents))
	}

	if shouldNotify {
		m.notifyCallbacks(readings)
	}
	return readings, nil
}

// Readings returns a copy of the latest readings.
func (m *Meter) Readings() []sample.Reading {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.copyReadings()
}

// History returns the retained RMS history of channel.
func (m *Meter) History(channel int) []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sensor.CurrentRMSHistory(channel)
}

// Channels returns the number of sensor channels.
func (m *Meter) Channels() int {
	return m.sensor.Channels()
}

// Reset discards accumulated statistics.
func (m *Meter) Reset() error {
	m.mu.Lock()
	if err := m.sensor.Reset(); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("reset: %w", err)
	}
	m.readings = sample.Collect(m.sensor, m.now())
	readings := m.copyReadings()
	shouldNotify := !m.shutdown
	m.mu.Unlock()

	m.logger.Info("statistics reset")

	if shouldNotify {
		m.notifyCallbacks(readings)
	}
	return nil
}

// EstimateReferences measures the zero-current voltage of every channel.
// Inputs must carry no load. The estimate is not applied.
func (m *Meter) EstimateReferences() []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	estimate := m.sensor.EstimateReferences()
	m.logger.Info("references estimated",
		zap.Float64s("current", m.sensor.References()),
		zap.Float64s("estimate", estimate),
	)
	return estimate
}

// SetReferences replaces all channel references.
func (m *Meter) SetReferences(refs []float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(refs) != m.sensor.Channels() {
		return fmt.Errorf("%w: got %d values for %d channels", ErrReferences, len(refs), m.sensor.Channels())
	}
	for i, v := range refs {
		if !config.ValidReference(v) {
			return fmt.Errorf("%w: channel %d is %v", ErrReferences, i, v)
		}
	}

	m.sensor.SetReferences(refs)
	m.logger.Info("references applied", zap.Float64s("references", refs))
	return nil
}

// References returns the references in use.
func (m *Meter) References() []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sensor.References()
}

// LogDiagnostics dumps the sensor configuration and per-channel state to the
// platform log.
func (m *Meter) LogDiagnostics() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sensor.LogDebugInfo()
	m.sensor.LogChannelsInfo()
}

// OnUpdate registers a callback function that will be called after every pass
// and reset. The callback should copy data quickly and return as fast as possible.
func (m *Meter) OnUpdate(callback func(readings []sample.Reading)) {
	m.cbMu.Lock()
	defer m.cbMu.Unlock()
	m.callbacks = append(m.callbacks, callback)
}

// ResetShutdown resets the shutdown flag, allowing callbacks to be sent again.
// This should be called before starting a new Run.
func (m *Meter) ResetShutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shutdown = false
}

func (m *Meter) setShutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shutdown = true
}

// copyReadings must be called with m.mu held.
func (m *Meter) copyReadings() []sample.Reading {
	result := make([]sample.Reading, len(m.readings))
	copy(result, m.readings)
	return result
}

// notifyCallbacks invokes all registered callbacks without holding any locks.
func (m *Meter) notifyCallbacks(readings []sample.Reading) {
	m.cbMu.RLock()
	callbacks := make([]func(readings []sample.Reading), len(m.callbacks))
	copy(callbacks, m.callbacks)
	m.cbMu.RUnlock()

	for _, cb := range callbacks {
		if cb != nil {
			cb(readings)
		}
	}
}
