package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/itohio/goct/pkg/adc"
	"github.com/itohio/goct/pkg/meter"
	"github.com/itohio/goct/pkg/publish"
	"github.com/itohio/goct/pkg/sample"
	"github.com/itohio/goct/pkg/scope"
	"go.uber.org/zap"
)

// measurementChain tracks the components of a connection for graceful shutdown.
type measurementChain struct {
	source    adc.Source
	meter     *meter.Meter
	publisher *publish.Publisher
	cancel    context.CancelFunc
	done      chan struct{} // Closed when the meter goroutine exits
}

// appState holds the GUI state.
type appState struct {
	*app

	window      fyne.Window
	scopeWidget *scope.ScopeWidget
	table       *widget.Table
	connectBtn  *widget.Button
	resetBtn    *widget.Button
	calibBtn    *widget.Button
	diagBtn     *widget.Button
	chain       *measurementChain // Current measurement chain (nil if not connected)

	rowsMu sync.Mutex
	rows   [][]string

	// Throttling for widget updates
	lastUpdateTime time.Time
	updateMu       sync.Mutex
}

func runGUI(a *app) {
	application := fyneapp.NewWithID("com.itohio.goct")

	window := application.NewWindow("CT Current Monitor")
	window.Resize(fyne.NewSize(1200, 800))
	window.CenterOnScreen()

	state := &appState{
		app:    a,
		window: window,
		rows:   readingRows(nil),
	}

	toolbar := createToolbar(state)

	state.scopeWidget = scope.New(a.cfg)
	state.table = createReadingsTable(state)

	content := container.NewBorder(
		toolbar,
		container.NewGridWrap(fyne.NewSize(1180, 160), state.table),
		nil,
		nil,
		state.scopeWidget,
	)

	window.SetContent(content)
	window.SetOnClosed(func() {
		closeMeasurementChain(state.chain)
		state.chain = nil
	})
	window.ShowAndRun()
}

// createToolbar creates the toolbar with Connect, Reset, Calibrate, Diagnostics and Settings buttons.
func createToolbar(state *appState) fyne.CanvasObject {
	state.connectBtn = widget.NewButtonWithIcon("", theme.LoginIcon(), func() {
		handleConnect(state)
	})

	state.resetBtn = widget.NewButtonWithIcon("", theme.ViewRefreshIcon(), func() {
		if state.chain == nil {
			return
		}
		m := state.chain.meter
		go func() {
			if err := m.Reset(); err != nil {
				state.logger.Warn("failed to reset statistics", zap.Error(err))
			}
		}()
	})
	state.resetBtn.Disable()

	state.calibBtn = widget.NewButtonWithIcon("Calibrate", theme.MediaRecordIcon(), func() {
		showCalibrationDialog(state)
	})
	state.calibBtn.Disable()

	state.diagBtn = widget.NewButtonWithIcon("", theme.InfoIcon(), func() {
		if state.chain != nil {
			go state.chain.meter.LogDiagnostics()
		}
	})
	state.diagBtn.Disable()

	settingsBtn := widget.NewButtonWithIcon("", theme.SettingsIcon(), func() {
		showSettingsDialog(state)
	})

	return container.NewBorder(
		nil, // top
		nil, // bottom
		container.NewHBox(state.connectBtn, state.resetBtn, settingsBtn), // left
		container.NewHBox(state.calibBtn, state.diagBtn),                 // right
		nil, // center (spacer)
	)
}

// createReadingsTable creates the per-channel readings table.
func createReadingsTable(state *appState) *widget.Table {
	return widget.NewTable(
		func() (int, int) {
			state.rowsMu.Lock()
			defer state.rowsMu.Unlock()
			return len(state.rows), len(readingsHeader)
		},
		func() fyne.CanvasObject {
			return widget.NewLabel("000000.000 Wh")
		},
		func(id widget.TableCellID, obj fyne.CanvasObject) {
			state.rowsMu.Lock()
			defer state.rowsMu.Unlock()
			text := ""
			if id.Row < len(state.rows) && id.Col < len(state.rows[id.Row]) {
				text = state.rows[id.Row][id.Col]
			}
			obj.(*widget.Label).SetText(text)
		},
	)
}

func setControlsEnabled(state *appState, enabled bool) {
	for _, btn := range []*widget.Button{state.resetBtn, state.calibBtn, state.diagBtn} {
		if enabled {
			btn.Enable()
		} else {
			btn.Disable()
		}
	}
}

// closeMeasurementChain stops the meter and waits for it before closing the source.
func closeMeasurementChain(chain *measurementChain) {
	if chain == nil {
		return
	}

	chain.cancel()
	<-chain.done

	if chain.publisher != nil {
		chain.publisher.Close()
	}
	chain.source.Close()
}

// handleConnect handles the connect/disconnect button click.
func handleConnect(state *appState) {
	if state.chain != nil {
		closeMeasurementChain(state.chain)
		state.chain = nil
		setControlsEnabled(state, false)
		state.logger.Info("disconnected")
		return
	}

	src, err := state.openSource(context.Background())
	if err != nil {
		dialog.ShowError(err, state.window)
		return
	}

	m, err := state.newMeter(src)
	if err != nil {
		src.Close()
		dialog.ShowError(fmt.Errorf("failed to set up sensor: %w", err), state.window)
		return
	}

	pub, err := state.connectPublisher()
	if err != nil {
		// Measuring locally is still useful without a broker
		state.logger.Warn("publishing disabled", zap.Error(err))
		pub = nil
	}

	// Throttle updates to ~60 FPS to ensure smooth UI
	const updateInterval = 16 * time.Millisecond
	m.OnUpdate(func(readings []sample.Reading) {
		if pub != nil {
			if err := pub.Publish(readings); err != nil {
				state.logger.Warn("failed to publish readings", zap.Error(err))
			}
		}

		state.updateMu.Lock()
		now := time.Now()
		if now.Sub(state.lastUpdateTime) < updateInterval {
			state.updateMu.Unlock()
			return
		}
		state.lastUpdateTime = now
		state.updateMu.Unlock()

		history := collectHistory(m, m.Channels())
		rows := readingRows(readings)

		UpdateWidgetOnMainThread(func() {
			state.scopeWidget.UpdateData(history, readings)
			state.rowsMu.Lock()
			state.rows = rows
			state.rowsMu.Unlock()
			state.table.Refresh()
		})
	})

	ctx, cancel := context.WithCancel(context.Background())
	chain := &measurementChain{
		source:    src,
		meter:     m,
		publisher: pub,
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	go func() {
		defer close(chain.done)
		if err := m.Run(ctx); err != nil && ctx.Err() == nil {
			state.logger.Error("sampling stopped", zap.Error(err))
			UpdateWidgetOnMainThread(func() {
				dialog.ShowError(err, state.window)
			})
		}
	}()

	state.chain = chain
	setControlsEnabled(state, true)
}
