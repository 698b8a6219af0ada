package utils

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// serviceName tags every log line so a multi-instance deployment's
// aggregated logs (or a developer's console) can tell this signaling
// core's output apart from the media worker subprocess it drives.
const serviceName = "sfu-signaling"

var Logger *zap.Logger

func InitLogger(level, format string) error {
	var config zap.Config

	if format == "json" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
	}

	switch level {
	case "debug":
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	case "info":
		config.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	case "warn":
		config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	case "error":
		config.Level = zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	default:
		config.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	logger, err := config.Build()
	if err != nil {
		return err
	}

	Logger = logger.Named(serviceName)
	return nil
}

func GetLogger() *zap.Logger {
	if Logger == nil {
		fallback, _ := zap.NewProduction()
		Logger = fallback.Named(serviceName)
	}
	return Logger
}
