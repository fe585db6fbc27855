package ct

import "fmt"

const separator = "------------------------------------"

// LogDebugInfo writes the sampling configuration to the platform log.
func (s *Sensor) LogDebugInfo() {
	s.logAlways("Sampling period in seconds: %d", s.cfg.SamplingPeriodSeconds)
	s.logAlways("Sampling frequency in hertz: %d", s.cfg.SamplingFrequencyHz)
	s.logAlways("Sampling data points count: %d", s.dataPointsCount)
	s.logAlways("Sampling delay: %d", s.samplingDelayMs)
	s.logAlways("Skip sampling delay: %t", s.cfg.SkipSamplingDelay)
	s.logAlways("Max current input from sensors: %g", s.cfg.MaxCurrentInput)
	s.logAlways("Max peak current: %f", s.peakCurrent)
	s.logAlways("Ref constant voltage input from grid: %g", s.cfg.RefVoltageInput)
	if s.stats != nil {
		s.logAlways("Current RMS data points count: %d", s.stats.Passes())
	}
	s.logAlways("Current RMS noise level: %f", s.cfg.CurrentNoiseLevel)
	s.logAlways(separator)
}

// LogChannelsInfo writes a live raw reading and the running statistics of every
// channel to the platform log. Statistics are left out while the sensor is not Ready.
func (s *Sensor) LogChannelsInfo() {
	for c := range s.references {
		s.logAlways("[CHANNEL %d] Raw value: %f V", c, s.platform.RawValue(c))
		s.logAlways("[CHANNEL %d] Ref voltage on zero current: %f V", c, s.references[c])
		if s.stats == nil {
			s.logAlways(separator)
			continue
		}
		s.logAlways("[CHANNEL %d] Min Current RMS: %f Amps", c, s.MinCurrentRMS(c))
		s.logAlways("[CHANNEL %d] Avg Current RMS: %f Amps", c, s.AvgCurrentRMS(c))
		s.logAlways("[CHANNEL %d] Max Current RMS: %f Amps", c, s.MaxCurrentRMS(c))
		s.logAlways("[CHANNEL %d] Energy: %f Watts-Hour", c, s.EnergyWattHours(c))
		s.logAlways(separator)
	}
}

func (s *Sensor) logAlways(format string, args ...any) {
	s.platform.Log(fmt.Sprintf(format, args...))
}
