package scope

import (
	"image/color"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"
	"github.com/itohio/goct/pkg/config"
	"github.com/itohio/goct/pkg/sample"
)

// channelColors are the trace colors of channels 0..3.
var channelColors = []color.RGBA{
	{R: 255, G: 165, B: 0, A: 255},   // Orange
	{R: 100, G: 200, B: 255, A: 255}, // Light blue
	{R: 120, G: 220, B: 120, A: 255}, // Green
	{R: 230, G: 110, B: 230, A: 255}, // Magenta
}

// ScopeWidget is a custom Fyne widget that plots per-pass RMS current of every channel.
type ScopeWidget struct {
	widget.BaseWidget

	cfg *config.Config

	// Data (protected by mu)
	mu       sync.RWMutex
	readings []sample.Reading

	// Display buffers (reused for downsampling and smoothing)
	display  [][]float64
	smoothed [][]float64

	// Auto-scaling
	yMin, yMax float64

	// Display settings
	maxDisplayPoints int
	smoothWindow     int
}

// New creates a new ScopeWidget instance.
func New(cfg *config.Config) *ScopeWidget {
	s := &ScopeWidget{
		cfg:              cfg,
		maxDisplayPoints: 128, // Limit points for efficient rendering
		smoothWindow:     8,
		yMax:             1.0,
	}
	s.ExtendBaseWidget(s)
	// Trigger initial refresh to display empty scope
	s.Refresh()
	return s
}

// UpdateData updates the widget with per-channel RMS history and the latest readings.
// This should be called from the meter callback using fyne.Do().
func (s *ScopeWidget) UpdateData(history [][]float64, readings []sample.Reading) {
	s.mu.Lock()

	if len(s.display) != len(history) {
		s.display = make([][]float64, len(history))
		s.smoothed = make([][]float64, len(history))
	}
	for ch, h := range history {
		s.display[ch] = sample.Downsample(s.display[ch], h, s.maxDisplayPoints)
		s.smoothed[ch] = sample.MovingAverage(s.smoothed[ch], s.display[ch], s.smoothWindow)
	}
	s.readings = readings

	s.yMin, s.yMax = autoScale(s.display)

	s.mu.Unlock()

	// Refresh the widget (must be outside lock to avoid potential deadlock)
	s.Refresh()
}

// autoScale returns a Y range from zero to the largest current plus a 10% margin.
func autoScale(traces [][]float64) (float64, float64) {
	yMax := 0.0
	for _, trace := range traces {
		for _, v := range trace {
			if v > yMax {
				yMax = v
			}
		}
	}

	yMax *= 1.1
	if yMax < 1.0 {
		yMax = 1.0
	}
	return 0, yMax
}

// CreateRenderer creates the widget renderer.
func (s *ScopeWidget) CreateRenderer() fyne.WidgetRenderer {
	grid := canvas.NewRectangle(color.RGBA{R: 20, G: 20, B: 20, A: 255}) // Dark background
	return &scopeRenderer{
		scope:    s,
		grid:     grid,
		objects:  []fyne.CanvasObject{grid},
		lastSize: fyne.Size{Width: 0, Height: 0},
	}
}
