package sample

import (
	"time"
)

// Reading is a snapshot of one channel taken after a sampling pass.
type Reading struct {
	Timestamp  time.Time `json:"timestamp"`
	Channel    int       `json:"channel"`
	Pass       int       `json:"pass"`        // Completed passes since the last reset
	Current    float64   `json:"current"`     // RMS current of the latest pass (A)
	MinCurrent float64   `json:"min_current"` // (A)
	AvgCurrent float64   `json:"avg_current"` // (A)
	MaxCurrent float64   `json:"max_current"` // (A)
	Voltage    float64   `json:"voltage"`     // Nominal grid voltage (V)
	Power      float64   `json:"power"`       // Average power (W)
	Energy     float64   `json:"energy"`      // Accumulated energy (Wh)
}

// Source is the read side of a sensor.
type Source interface {
	Channels() int
	Passes() int
	LastCurrentRMS(channel int) float64
	MinCurrentRMS(channel int) float64
	AvgCurrentRMS(channel int) float64
	MaxCurrentRMS(channel int) float64
	Voltage(channel int) float64
	AvgPowerWatts(channel int) float64
	EnergyWattHours(channel int) float64
}

// Collect snapshots every channel of src.
func Collect(src Source, ts time.Time) []Reading {
	n := src.Channels()
	pass := src.Passes() - 1

	readings := make([]Reading, n)
	for ch := range n {
		readings[ch] = Reading{
			Timestamp:  ts,
			Channel:    ch,
			Pass:       pass,
			Current:    src.LastCurrentRMS(ch),
			MinCurrent: src.MinCurrentRMS(ch),
			AvgCurrent: src.AvgCurrentRMS(ch),
			MaxCurrent: src.MaxCurrentRMS(ch),
			Voltage:    src.Voltage(ch),
			Power:      src.AvgPowerWatts(ch),
			Energy:     src.EnergyWattHours(ch),
		}
	}
	return readings
}

// TotalPower sums average power over readings.
func TotalPower(readings []Reading) float64 {
	var total float64
	for _, r := range readings {
		total += r.Power
	}
	return total
}

// TotalEnergy sums accumulated energy over readings.
func TotalEnergy(readings []Reading) float64 {
	var total float64
	for _, r := range readings {
		total += r.Energy
	}
	return total
}
