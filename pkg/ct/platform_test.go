package ct

import (
	"math"

	"github.com/itohio/goct/pkg/config"
)

// fakePlatform records every call and returns synthetic readings.
type fakePlatform struct {
	// value returns the reading of channel for its n-th read (0-based).
	value func(channel, n int) float64

	reads  []int
	delays []int
	logs   []string
}

func (f *fakePlatform) RawValue(channel int) float64 {
	n := 0
	for _, c := range f.reads {
		if c == channel {
			n++
		}
	}
	f.reads = append(f.reads, channel)
	if f.value == nil {
		return config.DefaultReference
	}
	return f.value(channel, n)
}

func (f *fakePlatform) Delay(ms int) {
	f.delays = append(f.delays, ms)
}

func (f *fakePlatform) Log(msg string) {
	f.logs = append(f.logs, msg)
}

// sine returns readings oscillating around ref with the given fractional
// amplitude per channel and a period of `period` samples.
func sine(ref float64, period int, amplitudes ...float64) func(channel, n int) float64 {
	return func(channel, n int) float64 {
		phase := 2 * math.Pi * float64(n%period) / float64(period)
		return ref * (1 + amplitudes[channel]*math.Sin(phase))
	}
}

func constant(values ...float64) func(channel, n int) float64 {
	return func(channel, n int) float64 {
		return values[channel]
	}
}

func testSensorConfig(channels int) *config.SensorConfig {
	cfg := config.Default().Sensor
	cfg.Channels = channels
	return &cfg
}
