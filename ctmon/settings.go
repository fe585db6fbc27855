package main

import (
	"fmt"
	"strconv"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"github.com/itohio/goct/pkg/adc"
	"github.com/itohio/goct/pkg/config"
)

// showSettingsDialog displays a settings dialog with tabs for all configuration options.
// Sensor changes apply on the next connect.
func showSettingsDialog(state *appState) {
	tabs := container.NewAppTabs(
		createSerialTab(state),
		createSensorTab(state),
		createCalibrationTab(state),
		createMQTTTab(state),
		createMockTab(state),
	)

	content := container.NewBorder(nil, nil, nil, nil, tabs)
	content.Resize(fyne.NewSize(600, 500))

	d := dialog.NewCustom("Settings", "Close", content, state.window)
	d.Resize(fyne.NewSize(600, 500))
	d.Show()
}

// saveConfig validates and writes the configuration, reporting errors in a dialog.
func saveConfig(state *appState) bool {
	if err := state.cfg.Validate(); err != nil {
		dialog.ShowError(fmt.Errorf("invalid configuration: %w", err), state.window)
		return false
	}
	if err := state.cfg.Save(state.configPath); err != nil {
		dialog.ShowError(fmt.Errorf("failed to save config: %w", err), state.window)
		return false
	}
	return true
}

// createSerialTab creates the Serial configuration tab.
func createSerialTab(state *appState) *container.TabItem {
	ports, err := adc.Ports()
	portOptions := []string{}
	portMap := make(map[string]string) // Map display name to actual port name

	if err == nil {
		for _, port := range ports {
			displayName := port.Name
			if port.Description != "" && port.Description != port.Name {
				displayName = fmt.Sprintf("%s (%s)", port.Name, port.Description)
			}
			portOptions = append(portOptions, displayName)
			portMap[displayName] = port.Name
		}
	}

	// Add current port if not in list
	currentPort := state.cfg.Serial.Port
	currentDisplay := currentPort
	found := false
	for _, opt := range portOptions {
		if portMap[opt] == currentPort {
			currentDisplay = opt
			found = true
			break
		}
	}
	if !found && currentPort != "" {
		portOptions = append(portOptions, currentPort)
		portMap[currentPort] = currentPort
	}

	portSelect := widget.NewSelect(portOptions, nil)
	if currentDisplay != "" {
		portSelect.SetSelected(currentDisplay)
	}

	vrefEntry := widget.NewEntry()
	vrefEntry.SetText(fmt.Sprintf("%.3f", state.cfg.Serial.VRef))

	bitsEntry := widget.NewEntry()
	bitsEntry.SetText(strconv.Itoa(state.cfg.Serial.ResolutionBits))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Serial Port", Widget: portSelect},
			{Text: "ADC VRef (V)", Widget: vrefEntry},
			{Text: "ADC Resolution (bits)", Widget: bitsEntry},
		},
		OnSubmit: func() {
			if portSelect.Selected != "" {
				selectedPort := portMap[portSelect.Selected]
				if selectedPort == "" {
					selectedPort = portSelect.Selected // Fallback to selected text
				}
				state.cfg.Serial.Port = selectedPort
			}
			if v, err := strconv.ParseFloat(vrefEntry.Text, 64); err == nil {
				state.cfg.Serial.VRef = v
			}
			if b, err := strconv.Atoi(bitsEntry.Text); err == nil {
				state.cfg.Serial.ResolutionBits = b
			}
			saveConfig(state)
		},
	}

	return container.NewTabItem("Serial", form)
}

// createSensorTab creates the CT sensor configuration tab.
func createSensorTab(state *appState) *container.TabItem {
	s := &state.cfg.Sensor

	channelsEntry := widget.NewEntry()
	channelsEntry.SetText(strconv.Itoa(s.Channels))

	periodEntry := widget.NewEntry()
	periodEntry.SetText(strconv.Itoa(s.SamplingPeriodSeconds))

	freqEntry := widget.NewEntry()
	freqEntry.SetText(strconv.Itoa(s.SamplingFrequencyHz))

	maxCurrentEntry := widget.NewEntry()
	maxCurrentEntry.SetText(fmt.Sprintf("%.1f", s.MaxCurrentInput))

	voltageEntry := widget.NewEntry()
	voltageEntry.SetText(fmt.Sprintf("%.1f", s.RefVoltageInput))

	noiseEntry := widget.NewEntry()
	noiseEntry.SetText(fmt.Sprintf("%.3f", s.CurrentNoiseLevel))

	skipDelayCheck := widget.NewCheck("", nil)
	skipDelayCheck.SetChecked(s.SkipSamplingDelay)

	debugCheck := widget.NewCheck("", nil)
	debugCheck.SetChecked(s.Debug)

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Channels", Widget: channelsEntry},
			{Text: "Sampling Period (s)", Widget: periodEntry},
			{Text: "Sampling Frequency (Hz)", Widget: freqEntry},
			{Text: "Max Current (A)", Widget: maxCurrentEntry},
			{Text: "Grid Voltage (V)", Widget: voltageEntry},
			{Text: "Noise Level (A)", Widget: noiseEntry},
			{Text: "Skip Sampling Delay", Widget: skipDelayCheck},
			{Text: "Debug Logging", Widget: debugCheck},
		},
		OnSubmit: func() {
			if v, err := strconv.Atoi(channelsEntry.Text); err == nil && v != s.Channels {
				s.Channels = v
				s.References = nil // references are per channel
			}
			if v, err := strconv.Atoi(periodEntry.Text); err == nil {
				s.SamplingPeriodSeconds = v
			}
			if v, err := strconv.Atoi(freqEntry.Text); err == nil {
				s.SamplingFrequencyHz = v
			}
			if v, err := strconv.ParseFloat(maxCurrentEntry.Text, 64); err == nil {
				s.MaxCurrentInput = v
			}
			if v, err := strconv.ParseFloat(voltageEntry.Text, 64); err == nil {
				s.RefVoltageInput = v
			}
			if v, err := strconv.ParseFloat(noiseEntry.Text, 64); err == nil {
				s.CurrentNoiseLevel = v
			}
			s.SkipSamplingDelay = skipDelayCheck.Checked
			s.Debug = debugCheck.Checked
			saveConfig(state)
		},
	}

	return container.NewTabItem("Sensor", form)
}

// createCalibrationTab lets the user type references by hand.
func createCalibrationTab(state *appState) *container.TabItem {
	refs := state.cfg.Sensor.References
	if refs == nil {
		refs = make([]float64, state.cfg.Sensor.Channels)
		for i := range refs {
			refs[i] = config.DefaultReference
		}
	}

	refsEntry := widget.NewEntry()
	refsEntry.SetText(formatReferences(refs))

	pointsEntry := widget.NewEntry()
	pointsEntry.SetText(strconv.Itoa(state.cfg.Sensor.CalibrationDataPoints))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "References (V)", Widget: refsEntry},
			{Text: "Calibration Reads", Widget: pointsEntry},
		},
		OnSubmit: func() {
			parsed, err := parseReferences(refsEntry.Text)
			if err != nil {
				dialog.ShowError(err, state.window)
				return
			}
			points, err := strconv.Atoi(pointsEntry.Text)
			if err != nil || points < 1 {
				dialog.ShowError(fmt.Errorf("%w: %q", config.ErrInvalidCalibration, pointsEntry.Text), state.window)
				return
			}
			for i, v := range parsed {
				if !config.ValidReference(v) {
					dialog.ShowError(fmt.Errorf("%w: channel %d is %v", config.ErrInvalidReferences, i, v), state.window)
					return
				}
			}
			state.cfg.Sensor.CalibrationDataPoints = points
			state.cfg.Sensor.References = parsed
			if saveConfig(state) {
				applyReferences(state, parsed)
			}
		},
	}

	return container.NewTabItem("Calibration", form)
}

// createMQTTTab creates the MQTT broker configuration tab.
func createMQTTTab(state *appState) *container.TabItem {
	m := &state.cfg.MQTT

	hostEntry := widget.NewEntry()
	hostEntry.SetText(m.Host)
	hostEntry.SetPlaceHolder("empty = disabled")

	portEntry := widget.NewEntry()
	portEntry.SetText(strconv.Itoa(m.Port))

	userEntry := widget.NewEntry()
	userEntry.SetText(m.Username)

	passEntry := widget.NewPasswordEntry()
	passEntry.SetText(m.Password)

	topicEntry := widget.NewEntry()
	topicEntry.SetText(m.BaseTopic)

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Host", Widget: hostEntry},
			{Text: "Port", Widget: portEntry},
			{Text: "Username", Widget: userEntry},
			{Text: "Password", Widget: passEntry},
			{Text: "Base Topic", Widget: topicEntry},
		},
		OnSubmit: func() {
			m.Host = hostEntry.Text
			if v, err := strconv.Atoi(portEntry.Text); err == nil {
				m.Port = v
			}
			m.Username = userEntry.Text
			m.Password = passEntry.Text
			if topicEntry.Text != "" {
				m.BaseTopic = topicEntry.Text
			}
			saveConfig(state)
		},
	}

	return container.NewTabItem("MQTT", form)
}

// createMockTab creates the Mock ADC configuration tab.
func createMockTab(state *appState) *container.TabItem {
	m := &state.cfg.Mock

	biasEntry := widget.NewEntry()
	biasEntry.SetText(fmt.Sprintf("%.3f", m.Bias))

	amplitudesEntry := widget.NewEntry()
	amplitudesEntry.SetText(formatReferences(m.Amplitudes))

	frequencyEntry := widget.NewEntry()
	frequencyEntry.SetText(fmt.Sprintf("%.1f", m.LineFrequency))

	noiseLevelEntry := widget.NewEntry()
	noiseLevelEntry.SetText(fmt.Sprintf("%.6f", m.NoiseLevel))

	realtimeCheck := widget.NewCheck("", nil)
	realtimeCheck.SetChecked(m.Realtime)

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Bias (V)", Widget: biasEntry},
			{Text: "Amplitudes (V)", Widget: amplitudesEntry},
			{Text: "Line Frequency (Hz)", Widget: frequencyEntry},
			{Text: "Noise Level (V)", Widget: noiseLevelEntry},
			{Text: "Realtime", Widget: realtimeCheck},
		},
		OnSubmit: func() {
			if v, err := strconv.ParseFloat(biasEntry.Text, 64); err == nil {
				m.Bias = v
			}
			if v, err := parseReferences(amplitudesEntry.Text); err == nil {
				m.Amplitudes = v
			}
			if v, err := strconv.ParseFloat(frequencyEntry.Text, 64); err == nil {
				m.LineFrequency = v
			}
			if v, err := strconv.ParseFloat(noiseLevelEntry.Text, 64); err == nil {
				m.NoiseLevel = v
			}
			m.Realtime = realtimeCheck.Checked
			saveConfig(state)
		},
	}

	return container.NewTabItem("Mock", form)
}

// applyReferences pushes references into a running meter, if any.
func applyReferences(state *appState, refs []float64) {
	if state.chain == nil {
		return
	}
	if err := state.chain.meter.SetReferences(refs); err != nil {
		dialog.ShowError(err, state.window)
	}
}

// showCalibrationDialog estimates references on a running meter and offers to apply them.
func showCalibrationDialog(state *appState) {
	if state.chain == nil {
		return
	}
	m := state.chain.meter

	dialog.ShowConfirm("Calibrate",
		"Remove all loads from the CT clamps, then continue.\nThe estimate is taken after the current pass.",
		func(ok bool) {
			if !ok {
				return
			}
			go func() {
				current := m.References()
				estimate := m.EstimateReferences()
				UpdateWidgetOnMainThread(func() {
					showCalibrationResult(state, current, estimate)
				})
			}()
		}, state.window)
}

func showCalibrationResult(state *appState, current, estimate []float64) {
	msg := fmt.Sprintf("Current calibration set: %s\nDesired calibration set: %s\n\nApply and save?",
		formatReferences(current), formatReferences(estimate))

	dialog.ShowConfirm("Calibration Result", msg, func(ok bool) {
		if !ok {
			return
		}
		if state.chain != nil {
			if err := state.chain.meter.SetReferences(estimate); err != nil {
				dialog.ShowError(err, state.window)
				return
			}
		}
		state.cfg.Sensor.References = estimate
		saveConfig(state)
	}, state.window)
}
