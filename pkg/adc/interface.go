package adc

import (
	"errors"

	"github.com/itohio/goct/pkg/ct"
	"github.com/itohio/goct/pkg/logging"
	"go.uber.org/zap"
)

var (
	ErrAlreadyConnected = errors.New("already connected")
	ErrNotConnected     = errors.New("not connected")
	ErrNoFrame          = errors.New("no frame received yet")
	ErrStreamEnded      = errors.New("data stream ended")
)

// Source defines the interface for ADC sources (real or mocked).
type Source interface {
	Connect() error
	Close() error
	IsConnected() bool
	Channels() int
	// RawValue returns the latest voltage of an analog input.
	RawValue(channel int) float64
	// Delay blocks for ms milliseconds of source time.
	Delay(ms int)
	// Err reports why RawValue cannot be trusted, or nil.
	Err() error
}

// Ensure Serial implements Source.
var _ Source = (*Serial)(nil)

// Ensure Mock implements Source.
var _ Source = (*Mock)(nil)

type platform struct {
	Source
	*logging.Sink
}

// Ensure the platform reports source failures to the sensor.
var _ ct.Checker = platform{}

// Platform binds a source and a logger into the capability set a ct.Sensor needs.
func Platform(src Source, logger *zap.Logger) ct.Platform {
	return platform{Source: src, Sink: logging.NewSink(logger)}
}
