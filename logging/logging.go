// Package logging builds the studio's root zap logger from config values.
// Subsystems derive their own loggers with Named.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the root logger. format is "console" for development output
// or "json" for structured output. The returned AtomicLevel changes the
// level at runtime; the serve command hooks it to config reload.
func New(level, format string) (*zap.Logger, zap.AtomicLevel, error) {
	console := format == "console"

	encCfg := zap.NewProductionEncoderConfig()
	encoding := "json"
	if console {
		encCfg = zap.NewDevelopmentEncoderConfig()
		encoding = "console"
	}
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	atomic := zap.NewAtomicLevelAt(Level(level))
	cfg := zap.Config{
		Level:            atomic,
		Development:      console,
		Encoding:         encoding,
		EncoderConfig:    encCfg,
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}
	log, err := cfg.Build()
	if err != nil {
		return nil, atomic, fmt.Errorf("build logger: %w", err)
	}
	return log, atomic, nil
}

// Level maps a level name to a zap level. Unknown names mean info so a
// typo in config never silences the host.
func Level(name string) zapcore.Level {
	switch strings.ToLower(name) {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
