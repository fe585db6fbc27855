package ct

// Platform is the hardware a Sensor samples through.
//
// Implementations must tolerate being called from a single goroutine for the
// whole duration of a pass; the Sensor never calls them concurrently.
type Platform interface {
	// RawValue returns the instantaneous analog reading of channel in volts.
	RawValue(channel int) float64
	// Delay blocks for ms milliseconds.
	Delay(ms int)
	// Log receives a formatted diagnostic line. A no-op is allowed.
	Log(msg string)
}

// Tracer is implemented by platforms that keep per-pass debug traces apart
// from diagnostics the operator asked for. When a platform is not a Tracer,
// traces go to Log.
type Tracer interface {
	Trace(msg string)
}

// Checker is implemented by platforms whose readings can stop being valid,
// such as a serial stream that ended. A pass is refused when Err is non-nil
// before it starts and discarded when Err is non-nil after its sweeps.
type Checker interface {
	Err() error
}
