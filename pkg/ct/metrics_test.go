package ct

import (
	"strings"
	"testing"

	"github.com/itohio/goct/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnergyWattHours(t *testing.T) {
	cfg := testSensorConfig(1)
	cfg.RefVoltageInput = 230
	cfg.SamplingPeriodSeconds = 1
	s := newReadySensor(t, cfg, &fakePlatform{})

	s.stats.Update(0, 2.0)
	s.stats.Advance()

	assert.InDelta(t, 230*2.0*1/3600.0, s.EnergyWattHours(0), 1e-12)
	assert.InDelta(t, 0.1278, s.EnergyWattHours(0), 1e-4)
}

func TestEnergyWattHours_UsesSumOfPasses(t *testing.T) {
	cfg := testSensorConfig(1)
	cfg.RefVoltageInput = 120
	cfg.SamplingPeriodSeconds = 2
	s := newReadySensor(t, cfg, &fakePlatform{})

	for _, v := range []float64{1, 2, 3} {
		s.stats.Update(0, v)
		s.stats.Advance()
	}

	assert.InDelta(t, 120*6.0*2/3600, s.EnergyWattHours(0), 1e-12)
}

func TestAvgPowerWatts(t *testing.T) {
	cfg := testSensorConfig(2)
	cfg.RefVoltageInput = 230
	s := newReadySensor(t, cfg, &fakePlatform{value: sine(config.DefaultReference, 10, 0.05, 0)})

	require.NoError(t, s.StartSampling())

	assert.InDelta(t, 230*5.0, s.AvgPowerWatts(0), 1e-6)
	assert.Equal(t, 0.0, s.AvgPowerWatts(1))
}

func TestVoltage(t *testing.T) {
	cfg := testSensorConfig(2)
	cfg.RefVoltageInput = 110
	s := newReadySensor(t, cfg, &fakePlatform{})

	assert.Equal(t, 110.0, s.Voltage(0))
	assert.Equal(t, 110.0, s.Voltage(1))
}

func TestLogDebugInfo(t *testing.T) {
	p := &fakePlatform{}
	s := newReadySensor(t, testSensorConfig(2), p)

	s.LogDebugInfo()

	require.NotEmpty(t, p.logs)
	assert.Equal(t, "Sampling period in seconds: 1", p.logs[0])
	assert.Contains(t, p.logs, "Sampling data points count: 100")
	assert.Contains(t, p.logs, "Sampling delay: 10")
	assert.Contains(t, p.logs, "Current RMS data points count: 1")
	assert.Equal(t, separator, p.logs[len(p.logs)-1])
}

func TestLogChannelsInfo(t *testing.T) {
	p := &fakePlatform{value: constant(1.7, 1.6)}
	s := newReadySensor(t, testSensorConfig(2), p)

	s.LogChannelsInfo()

	assert.Len(t, p.logs, 14)
	assert.Equal(t, "[CHANNEL 0] Raw value: 1.700000 V", p.logs[0])
	assert.Equal(t, "[CHANNEL 1] Raw value: 1.600000 V", p.logs[7])

	var energy int
	for _, l := range p.logs {
		if strings.Contains(l, "Energy:") {
			energy++
		}
	}
	assert.Equal(t, 2, energy)
}
