// Package logging builds the process logger.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mesh-intelligence/dbbridge/pkg/types"
)

// New builds a sugared logger at the configured level. Development mode uses
// the console encoder and writes to stdout.
func New(cfg types.LogConfig) (*zap.SugaredLogger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", types.ErrLogLevelUnknown, cfg.Level)
	}

	var z zap.Config
	if cfg.Development {
		z = zap.NewDevelopmentConfig()
		z.OutputPaths = []string{"stdout"}
	} else {
		z = zap.NewProductionConfig()
	}
	z.Level = zap.NewAtomicLevelAt(level)

	logger, err := z.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger.Sugar(), nil
}
