package main

import (
	"context"
	"fmt"
	"time"

	"github.com/itohio/goct/pkg/adc"
	"github.com/itohio/goct/pkg/config"
	"github.com/itohio/goct/pkg/logging"
	"github.com/itohio/goct/pkg/meter"
	"github.com/itohio/goct/pkg/publish"
	"go.uber.org/zap"
)

// firstFrameTimeout bounds the wait for the firmware to start streaming.
const firstFrameTimeout = 5 * time.Second

// app holds what every run mode shares.
type app struct {
	cfg        *config.Config
	configPath string
	useMock    bool
	logger     *zap.Logger
}

// openSource connects the mock or the serial ADC.
func (a *app) openSource(ctx context.Context) (adc.Source, error) {
	if a.useMock {
		src := adc.NewMock(&a.cfg.Mock, a.cfg.Sensor.Channels)
		if err := src.Connect(); err != nil {
			return nil, fmt.Errorf("failed to connect to mocked ADC: %w", err)
		}
		a.logger.Info("using mocked ADC")
		return src, nil
	}

	src := adc.NewSerial(a.cfg.Serial, a.cfg.Sensor.Channels, logging.Named(a.logger, "serial"))
	if err := src.Connect(); err != nil {
		return nil, err
	}

	waitCtx, cancel := context.WithTimeout(ctx, firstFrameTimeout)
	defer cancel()
	if err := src.WaitFrame(waitCtx); err != nil {
		src.Close()
		return nil, fmt.Errorf("no data from %s: %w", a.cfg.Serial.Port, err)
	}

	a.logger.Info("connected to serial port", zap.String("port", a.cfg.Serial.Port))
	return src, nil
}

// newMeter builds a meter sampling src.
func (a *app) newMeter(src adc.Source) (*meter.Meter, error) {
	return meter.New(a.cfg, adc.Platform(src, logging.Named(a.logger, "sensor")), logging.Named(a.logger, "meter"))
}

// connectPublisher returns nil when MQTT is not configured.
func (a *app) connectPublisher() (*publish.Publisher, error) {
	if !publish.Enabled(a.cfg.MQTT) {
		return nil, nil
	}

	pub := publish.New(a.cfg.MQTT, logging.Named(a.logger, "mqtt"))
	if err := pub.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}
	return pub, nil
}
