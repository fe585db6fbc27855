package adc

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/itohio/goct/pkg/config"
	"go.bug.st/serial"
	"go.uber.org/zap"
)

// DefaultBaudRate is the standard baud rate for XIAO SAMD21.
const DefaultBaudRate = 115200

// Frame is one line streamed by the firmware: a timestamp and raw ADC counts.
type Frame struct {
	Timestamp time.Time
	Counts    []uint16
}

// Port represents a serial port.
type Port struct {
	Name        string
	Description string
}

// Serial reads ADC frames streamed by the CT firmware and serves the latest one.
type Serial struct {
	cfg      config.SerialConfig
	channels int
	logger   *zap.Logger

	conn      io.ReadCloser
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	connected bool
	frame     Frame
	frames    uint64
	first     chan struct{}
	err       error // why the stream stopped on its own
}

// NewSerial creates a serial source for the given number of channels.
func NewSerial(cfg config.SerialConfig, channels int, logger *zap.Logger) *Serial {
	if cfg.BaudRate == 0 {
		cfg.BaudRate = DefaultBaudRate
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Serial{
		cfg:      cfg,
		channels: channels,
		logger:   logger.With(zap.String("port", cfg.Port)),
	}
}

// Ports returns a list of available serial ports.
func Ports() ([]Port, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	result := make([]Port, 0, len(ports))
	for _, name := range ports {
		result = append(result, Port{
			Name:        name,
			Description: name,
		})
	}

	return result, nil
}

// Connect opens the serial port and starts reading frames.
func (d *Serial) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected {
		return ErrAlreadyConnected
	}

	port, err := serial.Open(d.cfg.Port, &serial.Mode{BaudRate: d.cfg.BaudRate})
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", d.cfg.Port, err)
	}

	d.start(port)
	return nil
}

// start must be called with d.mu held.
func (d *Serial) start(r io.ReadCloser) {
	d.conn = r
	d.ctx, d.cancel = context.WithCancel(context.Background())
	d.connected = true
	d.frame = Frame{}
	d.frames = 0
	d.first = make(chan struct{})
	d.err = nil

	go d.readFrames(d.ctx, r, d.first)
}

// Close closes the port and stops reading.
func (d *Serial) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected {
		return nil
	}

	d.cancel()

	if d.conn != nil {
		if err := d.conn.Close(); err != nil {
			d.logger.Warn("error closing serial port", zap.Error(err))
		}
		d.conn = nil
	}

	d.connected = false
	return nil
}

// IsConnected returns whether the port is open.
func (d *Serial) IsConnected() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.connected
}

// Channels returns the number of channels the source serves.
func (d *Serial) Channels() int {
	return d.channels
}

// WaitFrame blocks until the first frame arrives after Connect, or the
// stream ends without one.
func (d *Serial) WaitFrame(ctx context.Context) error {
	d.mu.RLock()
	first := d.first
	d.mu.RUnlock()

	if first == nil {
		return ErrNotConnected
	}

	select {
	case <-first:
		return d.Err()
	case <-ctx.Done():
		return fmt.Errorf("waiting for first frame: %w", ctx.Err())
	}
}

// Frame returns the latest frame and the number of frames received.
func (d *Serial) Frame() (Frame, uint64) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.frame, d.frames
}

// RawValue converts the latest count of channel to volts. It is 0 until a
// frame has been received.
func (d *Serial) RawValue(channel int) float64 {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if channel >= len(d.frame.Counts) {
		return 0
	}
	return countsToVolts(d.frame.Counts[channel], d.cfg.VRef, d.cfg.ResolutionBits)
}

// Err returns ErrStreamEnded once the reader stopped on its own, ErrNotConnected
// after Close and ErrNoFrame until the first frame arrives.
func (d *Serial) Err() error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	switch {
	case d.err != nil:
		return d.err
	case !d.connected:
		return ErrNotConnected
	case d.frames == 0:
		return ErrNoFrame
	}
	return nil
}

// Delay sleeps; the firmware keeps streaming meanwhile.
func (d *Serial) Delay(ms int) {
	time.Sleep(time.Duration(ms) * time.Millisecond)
}

// readFrames reads lines from r and keeps the latest valid frame.
func (d *Serial) readFrames(ctx context.Context, r io.Reader, first chan struct{}) {
	defer func() {
		if rec := recover(); rec != nil {
			d.logger.Error("panic in readFrames", zap.Any("panic", rec))
		}
	}()

	scanner := bufio.NewScanner(r)
	for {
		select {
		case <-ctx.Done():
			return
		default:
			if !scanner.Scan() {
				d.streamEnded(ctx, scanner.Err(), first)
				return
			}

			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}

			frame, err := parseLine(line, d.channels, d.cfg.ResolutionBits)
			if err != nil {
				d.logger.Debug("failed to parse line", zap.String("line", line), zap.Error(err))
				continue
			}

			d.mu.Lock()
			if ctx.Err() == nil {
				d.frame = frame
				d.frames++
				if d.frames == 1 {
					close(first)
				}
			}
			d.mu.Unlock()
		}
	}
}

// streamEnded drops the connection when the reader stops without Close, so
// the last frame is not served as a frozen reading.
func (d *Serial) streamEnded(ctx context.Context, err error, first chan struct{}) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if ctx.Err() != nil {
		return // closed on purpose
	}

	if err != nil {
		d.err = fmt.Errorf("%w: %w", ErrStreamEnded, err)
		d.logger.Error("error reading from serial port", zap.Error(err))
	} else {
		d.err = ErrStreamEnded
		d.logger.Warn("serial stream ended")
	}

	d.cancel()
	if d.conn != nil {
		if cerr := d.conn.Close(); cerr != nil {
			d.logger.Warn("error closing serial port", zap.Error(cerr))
		}
		d.conn = nil
	}
	d.connected = false
	d.frame = Frame{}
	if d.frames == 0 {
		close(first)
	}
}

// parseLine parses a line from the MCU into a Frame.
// Format: unix_micros,c0[,c1[,c2[,c3]]]
// Example: 1234567890123,2048,2051,2047,2049
func parseLine(line string, channels, bits int) (Frame, error) {
	parts := strings.Split(line, ",")
	if len(parts) < channels+1 || len(parts) > config.MaxChannels+1 {
		return Frame{}, fmt.Errorf("invalid line format: expected %d to %d comma-separated values, got %d",
			channels+1, config.MaxChannels+1, len(parts))
	}

	timestampMicros, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return Frame{}, fmt.Errorf("invalid timestamp: %w", err)
	}

	limit := uint64(1)<<bits - 1
	counts := make([]uint16, 0, len(parts)-1)
	for i, p := range parts[1:] {
		v, err := strconv.ParseUint(p, 10, 16)
		if err != nil {
			return Frame{}, fmt.Errorf("invalid count on channel %d: %w", i, err)
		}
		if v > limit {
			return Frame{}, fmt.Errorf("count on channel %d out of range: %d (max %d)", i, v, limit)
		}
		counts = append(counts, uint16(v))
	}

	return Frame{
		Timestamp: time.UnixMicro(timestampMicros),
		Counts:    counts,
	}, nil
}

func countsToVolts(count uint16, vref float64, bits int) float64 {
	return float64(count) * vref / float64(uint64(1)<<bits-1)
}
