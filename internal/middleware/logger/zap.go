package logger

import (
	"go.uber.org/zap"
)

// NewLogger builds the process logger: human-readable development output
// when debug is set, JSON production output otherwise.
func NewLogger(debug bool) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("service", "poi-harvest")), nil
}
