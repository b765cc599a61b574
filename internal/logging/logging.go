// Package logging builds the zap logger shared by the server and CLI.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/habitnation/habitnation/internal/config"
)

// New builds a logger from cfg. The returned level can be changed at
// runtime, which is how config reloads adjust verbosity.
func New(cfg config.LogConfig) (*zap.Logger, zap.AtomicLevel, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, zap.AtomicLevel{}, err
	}

	var zc zap.Config
	if strings.EqualFold(cfg.Format, "console") {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
		zc.EncoderConfig.TimeKey = "time"
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	logger, err := zc.Build()
	if err != nil {
		return nil, zap.AtomicLevel{}, fmt.Errorf("build logger: %w", err)
	}
	return logger.Named("habitnation"), zc.Level, nil
}

// ParseLevel converts a config level name to a zap level
func ParseLevel(s string) (zapcore.Level, error) {
	if s == "" {
		return zapcore.InfoLevel, nil
	}
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(s))); err != nil {
		return zapcore.InfoLevel, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

// SetLevel applies a new level name to an atomic level
func SetLevel(atom zap.AtomicLevel, s string) error {
	level, err := ParseLevel(s)
	if err != nil {
		return err
	}
	atom.SetLevel(level)
	return nil
}

// Printf adapts a zap logger to the Printf-style Logger interface used by
// the server shutdown hooks
type Printf struct {
	L *zap.Logger
}

// Printf logs the formatted message at info level
func (p Printf) Printf(format string, args ...interface{}) {
	p.L.Sugar().Infof(format, args...)
}
