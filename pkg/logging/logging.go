package logging

import (
	"fmt"

	"github.com/itohio/goct/pkg/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a zap logger from configuration.
func New(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	zapCfg := zap.NewProductionConfig()
	if cfg.Development {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}

// Sink forwards sensor output to a zap logger. Requested diagnostics are
// written at info level, per-pass traces at debug level.
type Sink struct {
	logger *zap.Logger
}

// NewSink creates a Sink. A nil logger discards everything.
func NewSink(logger *zap.Logger) *Sink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sink{logger: logger}
}

// Log writes a diagnostic line at info level.
func (s *Sink) Log(msg string) {
	s.logger.Info(msg)
}

// Trace writes a per-pass trace line if the logger has debug enabled.
func (s *Sink) Trace(msg string) {
	s.logger.Debug(msg)
}

// Named returns a child logger tagged with a component name.
func Named(logger *zap.Logger, component string) *zap.Logger {
	return logger.With(zap.String("component", component))
}
