package adc

import (
	"math"
	"sync"
	"time"

	"github.com/itohio/goct/pkg/config"
)

// Mock simulates a CT board for testing and development.
//
// Signals follow a virtual clock that only moves on Delay and, when
// ReadTime is set, on every read. Two mocks with the same configuration
// produce identical sequences.
type Mock struct {
	cfg      config.MockConfig
	channels int

	mu        sync.RWMutex
	connected bool
	clock     time.Duration
}

// NewMock creates a new mocked source. A nil cfg uses the defaults.
func NewMock(cfg *config.MockConfig, channels int) *Mock {
	if cfg == nil {
		cfg = &config.Default().Mock
	}

	c := *cfg
	c.Amplitudes = append([]float64(nil), cfg.Amplitudes...)

	return &Mock{
		cfg:      c,
		channels: channels,
	}
}

// Connect simulates connecting to the board and rewinds the clock.
func (m *Mock) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connected {
		return ErrAlreadyConnected
	}

	m.connected = true
	m.clock = 0
	return nil
}

// Close stops the mocked source.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.connected = false
	return nil
}

// IsConnected returns whether the source is currently connected.
func (m *Mock) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

// Err returns ErrNotConnected while the mock is disconnected.
func (m *Mock) Err() error {
	if !m.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// Channels returns the number of simulated channels.
func (m *Mock) Channels() int {
	return m.channels
}

// Elapsed returns the virtual time since Connect.
func (m *Mock) Elapsed() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.clock
}

// RawValue returns the simulated voltage of channel at the current virtual time.
// A disconnected mock reads 0.
func (m *Mock) RawValue(channel int) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return 0
	}

	v := m.voltage(channel, m.clock)
	m.clock += m.cfg.ReadTime
	return v
}

// Delay advances the virtual clock, sleeping for real in realtime mode.
func (m *Mock) Delay(ms int) {
	d := time.Duration(ms) * time.Millisecond

	m.mu.Lock()
	m.clock += d
	m.mu.Unlock()

	if m.cfg.Realtime {
		time.Sleep(d)
	}
}

// voltage generates the CT output of a channel at time t.
func (m *Mock) voltage(channel int, t time.Duration) float64 {
	amplitude := 0.0
	if channel < len(m.cfg.Amplitudes) {
		amplitude = m.cfg.Amplitudes[channel]
	}

	phase := m.cfg.PhaseDegrees * math.Pi / 180
	signal := amplitude * math.Sin(2*math.Pi*m.cfg.LineFrequency*t.Seconds()+phase)

	ns := float64(t.Nanoseconds())
	c := float64(channel)
	noise := (math.Sin(ns*0.001+c) + math.Cos(ns*0.0013+c)) * m.cfg.NoiseLevel * 0.5

	v := m.cfg.Bias + signal + noise
	if v < 0 {
		v = 0
	}
	return v
}
