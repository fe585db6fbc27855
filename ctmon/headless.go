package main

import (
	"context"
	"errors"

	"github.com/itohio/goct/pkg/sample"
	"go.uber.org/zap"
)

// runHeadless samples until ctx is done or the given number of passes completed.
func (a *app) runHeadless(ctx context.Context, passes int) error {
	src, err := a.openSource(ctx)
	if err != nil {
		return err
	}
	defer src.Close()

	m, err := a.newMeter(src)
	if err != nil {
		return err
	}

	pub, err := a.connectPublisher()
	if err != nil {
		return err
	}
	if pub != nil {
		defer pub.Close()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m.OnUpdate(func(readings []sample.Reading) {
		for _, r := range readings {
			a.logger.Info("reading",
				zap.Int("channel", r.Channel),
				zap.Int("pass", r.Pass),
				zap.Float64("current", r.Current),
				zap.Float64("avg_current", r.AvgCurrent),
				zap.Float64("power", r.Power),
				zap.Float64("energy", r.Energy),
			)
		}

		if pub != nil {
			if err := pub.Publish(readings); err != nil {
				a.logger.Warn("failed to publish readings", zap.Error(err))
			}
		}

		if passes > 0 && len(readings) > 0 && readings[0].Pass >= passes {
			cancel()
		}
	})

	err = m.Run(ctx)
	if a.cfg.Sensor.Debug {
		m.LogDiagnostics()
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
