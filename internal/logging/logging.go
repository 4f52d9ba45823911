// Package logging builds the zap logger used across tondex.
package logging

import (
	"fmt"

	"github.com/CjHare/ton-amm-dex/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a logger from cfg. Console format uses the development encoder.
func New(cfg config.LogConfig) (*zap.Logger, error) {
	var zc zap.Config
	switch cfg.Format {
	case "json", "":
		zc = zap.NewProductionConfig()
	case "console":
		zc = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
	level := cfg.Level
	if level == "" {
		level = "info"
	}
	zc.Level = zap.NewAtomicLevel()
	if err := zc.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zc.DisableStacktrace = true
	return zc.Build()
}
