package logging

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const serviceName = "stash-api"

// NewLogger returns a zap production logger tagged with the service name.
// Unknown levels fall back to info.
func NewLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(level))
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.InitialFields = map[string]any{"service": serviceName}
	return cfg.Build()
}

func parseLevel(raw string) zapcore.Level {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if normalized == "warning" {
		return zapcore.WarnLevel
	}
	parsed, err := zapcore.ParseLevel(normalized)
	if err != nil || normalized == "" || parsed > zapcore.ErrorLevel {
		return zapcore.InfoLevel
	}
	return parsed
}
