package ct

import (
	"fmt"
	"strings"
)

// SetReference stores the zero-current voltage of channel.
func (s *Sensor) SetReference(channel int, v float64) {
	s.references[channel] = v
}

// SetReferences stores the zero-current voltages of all channels at once.
func (s *Sensor) SetReferences(values []float64) {
	for c := range s.references {
		s.references[c] = values[c]
	}
}

// Reference returns the zero-current voltage of channel.
func (s *Sensor) Reference(channel int) float64 {
	return s.references[channel]
}

// References returns a copy of all zero-current voltages.
func (s *Sensor) References() []float64 {
	return append([]float64(nil), s.references...)
}

// EstimateReferences averages CalibrationDataPoints raw readings per channel and
// logs them next to the current references. The estimate is returned, not applied.
//
// It must be run with no current flowing through the transformers.
func (s *Sensor) EstimateReferences() []float64 {
	sums := make([]float64, len(s.references))

	for points := s.cfg.CalibrationDataPoints; points > 0; points-- {
		for c := range sums {
			sums[c] += s.platform.RawValue(c)
			if s.cfg.ReadDelayMs > 0 {
				s.platform.Delay(s.cfg.ReadDelayMs)
			}
		}
	}

	estimate := make([]float64, len(sums))
	for c, sum := range sums {
		estimate[c] = sum / float64(s.cfg.CalibrationDataPoints)
	}

	s.platform.Log("Current calibration set: " + formatSet(s.references))
	s.platform.Log("Desired calibration set: " + formatSet(estimate))

	return estimate
}

func formatSet(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%f", v)
	}
	return "{" + strings.Join(parts, ", ") + "};"
}
