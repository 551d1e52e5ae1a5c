package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"hazacheck/internal/config"
)

// New builds the process logger from LOG_LEVEL and LOG_FORMAT.
// Development environments get the console encoder unless json is asked for.
func New(cfg config.LogConfig, app config.AppConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.Level, err)
	}

	zcfg := zap.NewProductionConfig()
	if app.IsDevelopment() {
		zcfg = zap.NewDevelopmentConfig()
	}
	switch strings.ToLower(cfg.Format) {
	case "json":
		zcfg.Encoding = "json"
	case "console", "text":
		zcfg.Encoding = "console"
	}
	if app.Debug && level > zapcore.DebugLevel {
		level = zapcore.DebugLevel
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.EncoderConfig.TimeKey = "ts"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger.With(zap.String("service", app.Name), zap.String("version", app.Version)), nil
}
