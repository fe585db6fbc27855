package ct

// The accessors below read the running statistics. They return zero values
// while the sensor is not Ready.

// MinCurrentRMS returns the lowest RMS current seen on channel.
func (s *Sensor) MinCurrentRMS(channel int) float64 {
	if s.stats == nil {
		return 0
	}
	return s.stats.Min(channel)
}

// AvgCurrentRMS returns the average RMS current of channel over all passes.
func (s *Sensor) AvgCurrentRMS(channel int) float64 {
	if s.stats == nil {
		return 0
	}
	return s.stats.Avg(channel)
}

// MaxCurrentRMS returns the highest RMS current seen on channel.
func (s *Sensor) MaxCurrentRMS(channel int) float64 {
	if s.stats == nil {
		return 0
	}
	return s.stats.Max(channel)
}

// LastCurrentRMS returns the RMS current of the latest pass.
func (s *Sensor) LastCurrentRMS(channel int) float64 {
	if s.stats == nil {
		return 0
	}
	return s.stats.Last(channel)
}

// CurrentRMSHistory returns retained per-pass RMS currents, oldest first.
func (s *Sensor) CurrentRMSHistory(channel int) []float64 {
	if s.stats == nil {
		return nil
	}
	return s.stats.History(channel)
}

// Passes returns the pass counter, which starts at 1.
func (s *Sensor) Passes() int {
	if s.stats == nil {
		return 0
	}
	return s.stats.Passes()
}

// EnergyWattHours approximates consumed energy of channel by treating every
// pass's RMS current as constant over one sampling period.
func (s *Sensor) EnergyWattHours(channel int) float64 {
	if s.stats == nil {
		return 0
	}
	return s.cfg.RefVoltageInput * s.stats.Sum(channel) * float64(s.cfg.SamplingPeriodSeconds) / 3600
}

// AvgPowerWatts returns nominal voltage times average RMS current.
func (s *Sensor) AvgPowerWatts(channel int) float64 {
	return s.cfg.RefVoltageInput * s.AvgCurrentRMS(channel)
}

// Voltage returns the configured nominal grid voltage. It is not measured.
func (s *Sensor) Voltage(channel int) float64 {
	return s.cfg.RefVoltageInput
}
