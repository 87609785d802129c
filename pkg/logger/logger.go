package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var Logger = zap.NewNop()

func InitLogger(env string) error {
	config := newConfig(env)

	l, err := config.Build()
	if err != nil {
		return err
	}
	Logger = l

	zap.ReplaceGlobals(Logger)

	return nil
}

func newConfig(env string) zap.Config {
	var config zap.Config

	switch env {
	case "dev", "development":
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		config = zap.NewProductionConfig()
	}
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return config
}

func Sync() {
	if Logger != nil {
		_ = Logger.Sync()
	}
}

func Fatal(msg string, fields ...zap.Field) {
	Logger.Fatal(msg, fields...)
}

func Named(name string) *zap.Logger {
	return Logger.Named(name)
}
