package scope

import (
	"fmt"
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"github.com/itohio/goct/pkg/sample"
)

// scopeRenderer renders the scope widget.
type scopeRenderer struct {
	scope *ScopeWidget

	// Background
	grid *canvas.Rectangle

	// Objects list for Fyne
	objects []fyne.CanvasObject

	// Track last size to detect changes
	lastSize fyne.Size
}

// plotArea is the rectangle traces are drawn into.
type plotArea struct {
	x, y, width, height float32
}

// point maps sample i of n with value v onto the plot.
func (p plotArea) point(i, n int, v, yMin, yMax float64) fyne.Position {
	x := p.x
	if n > 1 {
		x += float32(i) / float32(n-1) * p.width
	}
	y := p.y + p.height - float32((v-yMin)/(yMax-yMin))*p.height
	return fyne.NewPos(x, y)
}

// MinSize returns the minimum size of the widget.
func (r *scopeRenderer) MinSize() fyne.Size {
	return fyne.NewSize(400, 300)
}

// Layout arranges the widget components.
func (r *scopeRenderer) Layout(size fyne.Size) {
	// Background fills entire widget
	r.grid.Resize(size)

	if r.lastSize.Width != size.Width || r.lastSize.Height != size.Height {
		r.lastSize = size
		// Size changed, redraw with new dimensions
		r.scope.BaseWidget.Refresh()
	}
}

// Refresh updates the widget display.
func (r *scopeRenderer) Refresh() {
	r.scope.mu.RLock()
	display := r.scope.display
	smoothed := r.scope.smoothed
	readings := r.scope.readings
	yMin := r.scope.yMin
	yMax := r.scope.yMax
	r.scope.mu.RUnlock()

	size := r.scope.Size()
	if size.Width == 0 || size.Height == 0 {
		return
	}

	// Clear old objects (but keep grid)
	r.objects = []fyne.CanvasObject{r.grid}

	area := plotArea{
		x:      60,
		y:      20,
		width:  size.Width - 60 - 20,
		height: size.Height - 20 - 40,
	}

	r.drawGrid(area, yMin, yMax, passesShown(display))

	for ch := range display {
		c := channelColors[ch%len(channelColors)]
		faded := color.RGBA{R: c.R / 2, G: c.G / 2, B: c.B / 2, A: 255}
		r.drawTrace(area, display[ch], yMin, yMax, faded, 1)
		r.drawTrace(area, smoothed[ch], yMin, yMax, c, 2.5)
	}

	r.drawLegend(area, readings)
}

// drawGrid draws the oscilloscope-style grid.
func (r *scopeRenderer) drawGrid(area plotArea, yMin, yMax float64, passes int) {
	gridColor := color.RGBA{R: 40, G: 40, B: 40, A: 255}
	textColor := color.RGBA{R: 150, G: 150, B: 150, A: 255}

	// Horizontal grid lines (current)
	numHLines := 8
	for i := range numHLines + 1 {
		y := area.y + float32(i)*area.height/float32(numHLines)
		line := canvas.NewLine(gridColor)
		line.Position1 = fyne.NewPos(area.x, y)
		line.Position2 = fyne.NewPos(area.x+area.width, y)
		line.StrokeWidth = 1
		r.objects = append(r.objects, line)

		value := yMax - float64(i)*(yMax-yMin)/float64(numHLines)
		text := canvas.NewText(formatCurrent(value), textColor)
		text.TextSize = 10
		text.Alignment = fyne.TextAlignTrailing
		text.Move(fyne.NewPos(area.x-5, y-6))
		r.objects = append(r.objects, text)
	}

	// Vertical grid lines (passes ago)
	numVLines := 8
	for i := range numVLines + 1 {
		x := area.x + float32(i)*area.width/float32(numVLines)
		line := canvas.NewLine(gridColor)
		line.Position1 = fyne.NewPos(x, area.y)
		line.Position2 = fyne.NewPos(x, area.y+area.height)
		line.StrokeWidth = 1
		r.objects = append(r.objects, line)

		ago := passes - passes*i/numVLines
		text := canvas.NewText(fmt.Sprintf("-%d", ago), textColor)
		text.TextSize = 10
		text.Alignment = fyne.TextAlignCenter
		text.Move(fyne.NewPos(x-10, area.y+area.height+5))
		r.objects = append(r.objects, text)
	}
}

// drawTrace draws a connected polyline of one channel.
func (r *scopeRenderer) drawTrace(area plotArea, values []float64, yMin, yMax float64, c color.Color, width float32) {
	if len(values) < 2 {
		return
	}

	prev := area.point(0, len(values), values[0], yMin, yMax)
	for i := 1; i < len(values); i++ {
		next := area.point(i, len(values), values[i], yMin, yMax)
		line := canvas.NewLine(c)
		line.Position1 = prev
		line.Position2 = next
		line.StrokeWidth = width
		r.objects = append(r.objects, line)
		prev = next
	}
}

// drawLegend prints the latest reading of every channel in its trace color.
func (r *scopeRenderer) drawLegend(area plotArea, readings []sample.Reading) {
	for i, reading := range readings {
		text := canvas.NewText(legend(reading), channelColors[reading.Channel%len(channelColors)])
		text.TextSize = 11
		text.Alignment = fyne.TextAlignLeading
		text.Move(fyne.NewPos(area.x+10, area.y+10+float32(i)*14))
		r.objects = append(r.objects, text)
	}
}

// Objects returns all canvas objects for rendering.
func (r *scopeRenderer) Objects() []fyne.CanvasObject {
	return r.objects
}

// Destroy cleans up resources.
func (r *scopeRenderer) Destroy() {
	// Cleanup handled by Fyne
}

func passesShown(traces [][]float64) int {
	n := 0
	for _, t := range traces {
		n = max(n, len(t))
	}
	return n
}

func legend(r sample.Reading) string {
	return fmt.Sprintf("CH%d  %s  %s  %.3f Wh", r.Channel, formatCurrent(r.Current), formatPower(r.Power), r.Energy)
}

func formatCurrent(a float64) string {
	return fmt.Sprintf("%.2fA", a)
}

func formatPower(w float64) string {
	if w >= 1000 {
		return fmt.Sprintf("%.2f kW", w/1000)
	}
	return fmt.Sprintf("%.1f W", w)
}
