package logger

import (
	"go.uber.org/zap"
)

// NewZapLog builds a production zap logger at the configured level.
func NewZapLog(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	zapcfg := zap.NewProductionConfig()
	zapcfg.Level = lvl
	return zapcfg.Build()
}
