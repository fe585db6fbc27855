package adc

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/itohio/goct/pkg/config"
	"github.com/itohio/goct/pkg/ct"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		channels int
		bits     int
		want     []uint16
		wantErr  bool
	}{
		{
			name:     "valid line - four channels",
			line:     "1234567890123,2048,2051,2047,2049",
			channels: 4,
			bits:     12,
			want:     []uint16{2048, 2051, 2047, 2049},
		},
		{
			name:     "valid line - more counts than channels",
			line:     "1234567890123,2048,1024,0,4095",
			channels: 2,
			bits:     12,
			want:     []uint16{2048, 1024, 0, 4095},
		},
		{
			name:     "valid line - single channel",
			line:     "1234567890123,100",
			channels: 1,
			bits:     12,
			want:     []uint16{100},
		},
		{
			name:     "valid line - 16 bit counts",
			line:     "1234567890123,65535",
			channels: 1,
			bits:     16,
			want:     []uint16{65535},
		},
		{
			name:     "invalid - fewer counts than channels",
			line:     "1234567890123,2048,1024",
			channels: 4,
			bits:     12,
			wantErr:  true,
		},
		{
			name:     "invalid - too many fields",
			line:     "1234567890123,1,2,3,4,5",
			channels: 4,
			bits:     12,
			wantErr:  true,
		},
		{
			name:     "invalid - non-numeric timestamp",
			line:     "abc,2048,1024,2048,2048",
			channels: 4,
			bits:     12,
			wantErr:  true,
		},
		{
			name:     "invalid - non-numeric count",
			line:     "1234567890123,2048,abc",
			channels: 2,
			bits:     12,
			wantErr:  true,
		},
		{
			name:     "invalid - count out of range",
			line:     "1234567890123,5000",
			channels: 1,
			bits:     12,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseLine(tt.line, tt.channels, tt.bits)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, time.UnixMicro(1234567890123).UnixNano(), got.Timestamp.UnixNano())
			assert.Equal(t, tt.want, got.Counts)
		})
	}
}

func TestCountsToVolts(t *testing.T) {
	assert.Equal(t, 0.0, countsToVolts(0, 3.3, 12))
	assert.InDelta(t, 3.3, countsToVolts(4095, 3.3, 12), 1e-12)
	assert.InDelta(t, 1.65, countsToVolts(2048, 3.3, 12), 1e-3)
	assert.InDelta(t, 2.5, countsToVolts(65535, 2.5, 16), 1e-12)
}

func TestNewSerial(t *testing.T) {
	cfg := config.Default().Serial
	dev := NewSerial(cfg, 4, nil)
	assert.NotNil(t, dev)
	assert.Equal(t, "COM3", dev.cfg.Port)
	assert.Equal(t, 4, dev.Channels())
	assert.False(t, dev.IsConnected())
}

func TestNewSerial_Defaults(t *testing.T) {
	dev := NewSerial(config.SerialConfig{Port: "COM3"}, 1, nil)
	assert.Equal(t, DefaultBaudRate, dev.cfg.BaudRate)
}

func TestSerial_RawValue_NoFrame(t *testing.T) {
	dev := NewSerial(config.Default().Serial, 4, nil)
	assert.Equal(t, 0.0, dev.RawValue(0))
}

func TestSerial_WaitFrame_NotConnected(t *testing.T) {
	dev := NewSerial(config.Default().Serial, 4, nil)
	assert.ErrorIs(t, dev.WaitFrame(context.Background()), ErrNotConnected)
}

func TestSerial_Close_NotConnected(t *testing.T) {
	dev := NewSerial(config.Default().Serial, 4, nil)
	assert.NoError(t, dev.Close())
}

// connectPipe attaches the reader side of a pipe in place of a serial port.
func connectPipe(d *Serial) *io.PipeWriter {
	pr, pw := io.Pipe()
	d.mu.Lock()
	d.start(pr)
	d.mu.Unlock()
	return pw
}

func TestSerial_ReadFrames(t *testing.T) {
	dev := NewSerial(config.Default().Serial, 2, nil)
	pw := connectPipe(dev)
	defer dev.Close()

	assert.True(t, dev.IsConnected())

	go func() {
		_, _ = io.WriteString(pw, "garbage\n\n1000,4095,0\n")
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, dev.WaitFrame(ctx))

	assert.InDelta(t, 3.3, dev.RawValue(0), 1e-12)
	assert.Equal(t, 0.0, dev.RawValue(1))
	assert.Equal(t, 0.0, dev.RawValue(3))

	go func() {
		_, _ = io.WriteString(pw, "2000,0,4095\n")
	}()

	require.Eventually(t, func() bool {
		_, n := dev.Frame()
		return n == 2
	}, 5*time.Second, time.Millisecond)

	frame, _ := dev.Frame()
	assert.Equal(t, time.UnixMicro(2000), frame.Timestamp)
	assert.Equal(t, 0.0, dev.RawValue(0))
	assert.InDelta(t, 3.3, dev.RawValue(1), 1e-12)
}

func TestSerial_Connect_AlreadyConnected(t *testing.T) {
	dev := NewSerial(config.Default().Serial, 1, nil)
	connectPipe(dev)
	defer dev.Close()

	err := dev.Connect()
	assert.ErrorIs(t, err, ErrAlreadyConnected)
}

func TestSerial_Delay(t *testing.T) {
	dev := NewSerial(config.Default().Serial, 1, nil)

	start := time.Now()
	dev.Delay(20)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestSerial_Err(t *testing.T) {
	dev := NewSerial(config.Default().Serial, 1, nil)
	assert.ErrorIs(t, dev.Err(), ErrNotConnected)

	pw := connectPipe(dev)
	assert.ErrorIs(t, dev.Err(), ErrNoFrame)

	go func() {
		_, _ = io.WriteString(pw, "1000,2048\n")
	}()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, dev.WaitFrame(ctx))
	assert.NoError(t, dev.Err())

	require.NoError(t, dev.Close())
	assert.ErrorIs(t, dev.Err(), ErrNotConnected)
}

func TestSerial_StreamEnd_DropsFrame(t *testing.T) {
	dev := NewSerial(config.Default().Serial, 1, nil)
	dev.mu.Lock()
	dev.start(io.NopCloser(strings.NewReader("1,3000\n")))
	dev.mu.Unlock()

	require.Eventually(t, func() bool {
		return !dev.IsConnected()
	}, 5*time.Second, time.Millisecond)

	assert.ErrorIs(t, dev.Err(), ErrStreamEnded)
	assert.Equal(t, 0.0, dev.RawValue(0))
	_, frames := dev.Frame()
	assert.Equal(t, uint64(1), frames)

	// Close after the stream ended is harmless and a reconnect clears the error
	assert.NoError(t, dev.Close())
	connectPipe(dev)
	defer dev.Close()
	assert.ErrorIs(t, dev.Err(), ErrNoFrame)
}

func TestSerial_StreamError(t *testing.T) {
	dev := NewSerial(config.Default().Serial, 1, nil)
	pw := connectPipe(dev)

	unplugged := errors.New("device unplugged")
	pw.CloseWithError(unplugged)

	require.Eventually(t, func() bool {
		return !dev.IsConnected()
	}, 5*time.Second, time.Millisecond)

	err := dev.Err()
	assert.ErrorIs(t, err, ErrStreamEnded)
	assert.ErrorIs(t, err, unplugged)
}

func TestSerial_WaitFrame_StreamEndedFirst(t *testing.T) {
	dev := NewSerial(config.Default().Serial, 1, nil)
	dev.mu.Lock()
	dev.start(io.NopCloser(strings.NewReader("garbage\n")))
	dev.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := dev.WaitFrame(ctx)
	assert.ErrorIs(t, err, ErrStreamEnded)
	assert.NoError(t, ctx.Err())
}

func TestSerial_StreamEnd_StopsSensor(t *testing.T) {
	dev := NewSerial(config.Default().Serial, 1, nil)
	pw := connectPipe(dev)

	go func() {
		_, _ = io.WriteString(pw, "1,2048\n")
	}()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, dev.WaitFrame(ctx))

	cfg := config.Default().Sensor
	cfg.Channels = 1
	cfg.SkipSamplingDelay = true
	s := ct.New(&cfg, Platform(dev, nil))
	require.NoError(t, s.Init())
	require.NoError(t, s.Setup())
	require.NoError(t, s.StartSampling())

	require.NoError(t, pw.Close())
	require.Eventually(t, func() bool {
		return !dev.IsConnected()
	}, 5*time.Second, time.Millisecond)

	err := s.StartSampling()
	assert.ErrorIs(t, err, ct.ErrPlatform)
	assert.ErrorIs(t, err, ErrStreamEnded)
	assert.Equal(t, 2, s.Passes())
}
