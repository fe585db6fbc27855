package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// calibrate measures the zero-current references and optionally stores them.
func (a *app) calibrate(w io.Writer, write bool) error {
	src, err := a.openSource(context.Background())
	if err != nil {
		return err
	}
	defer src.Close()

	m, err := a.newMeter(src)
	if err != nil {
		return err
	}

	current := m.References()
	estimate := m.EstimateReferences()

	fmt.Fprintf(w, "Current calibration set: %s\n", formatReferences(current))
	fmt.Fprintf(w, "Desired calibration set: %s\n", formatReferences(estimate))

	if !write {
		return nil
	}

	a.cfg.Sensor.References = estimate
	if err := a.cfg.Save(a.configPath); err != nil {
		return err
	}
	fmt.Fprintf(w, "Saved to %s\n", a.configPath)
	return nil
}

func formatReferences(refs []float64) string {
	parts := make([]string, len(refs))
	for i, v := range refs {
		parts[i] = strconv.FormatFloat(v, 'f', 6, 64)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// parseReferences reads a comma separated list of voltages, with or
// without surrounding braces.
func parseReferences(text string) ([]float64, error) {
	text = strings.Trim(strings.TrimSpace(text), "{};")
	if text == "" {
		return nil, fmt.Errorf("no references given")
	}

	fields := strings.Split(text, ",")
	refs := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, fmt.Errorf("reference %d: %w", i, err)
		}
		refs[i] = v
	}
	return refs, nil
}
