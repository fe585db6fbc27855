package main

import (
	"fmt"

	"fyne.io/fyne/v2"
	"github.com/itohio/goct/pkg/sample"
)

// UpdateWidgetOnMainThread schedules a widget update function to run on the main Fyne thread.
// This is required because Fyne widgets cannot be updated directly from goroutines.
func UpdateWidgetOnMainThread(callback func()) {
	if callback == nil {
		return
	}
	fyne.Do(callback)
}

// readingsHeader names the columns of the readings table.
var readingsHeader = []string{"Channel", "Current", "Min", "Avg", "Max", "Power", "Energy"}

// readingRows formats readings as table cells, header first.
func readingRows(readings []sample.Reading) [][]string {
	rows := make([][]string, 0, len(readings)+2)
	rows = append(rows, readingsHeader)
	for _, r := range readings {
		rows = append(rows, []string{
			fmt.Sprintf("CH%d", r.Channel),
			fmt.Sprintf("%.2f A", r.Current),
			fmt.Sprintf("%.2f A", r.MinCurrent),
			fmt.Sprintf("%.2f A", r.AvgCurrent),
			fmt.Sprintf("%.2f A", r.MaxCurrent),
			fmt.Sprintf("%.1f W", r.Power),
			fmt.Sprintf("%.3f Wh", r.Energy),
		})
	}
	if len(readings) > 1 {
		rows = append(rows, []string{
			"Total", "", "", "", "",
			fmt.Sprintf("%.1f W", sample.TotalPower(readings)),
			fmt.Sprintf("%.3f Wh", sample.TotalEnergy(readings)),
		})
	}
	return rows
}

// collectHistory fetches the RMS history of every channel.
func collectHistory(h interface{ History(int) []float64 }, channels int) [][]float64 {
	history := make([][]float64, channels)
	for ch := range channels {
		history[ch] = h.History(ch)
	}
	return history
}
