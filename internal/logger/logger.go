// Package logger builds the zap loggers used by the command line tool.
package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger creates a production logger writing JSON to stderr. debug forces
// the debug level and switches to the human-readable console encoder.
func NewLogger(level string, debug bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()

	lvl := zapcore.InfoLevel
	if strings.TrimSpace(level) != "" {
		parsed, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		lvl = parsed
	}
	if debug {
		lvl = zapcore.DebugLevel
		config.Encoding = "console"
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	config.Level = zap.NewAtomicLevelAt(lvl)

	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	config.DisableStacktrace = true
	config.OutputPaths = []string{"stderr"}
	config.ErrorOutputPaths = []string{"stderr"}

	return config.Build()
}

// Must is NewLogger for call sites that cannot continue without a logger.
func Must(level string, debug bool) *zap.Logger {
	log, err := NewLogger(level, debug)
	if err != nil {
		panic("initialise logger: " + err.Error())
	}
	return log
}
