// Package logging builds the process logger.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Formats accepted by New.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Options configure the logger.
type Options struct {
	Verbose bool
	Format  string
}

// New builds a production zap logger writing to stderr. Verbose lowers the
// level to debug.
func New(opts Options) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	switch opts.Format {
	case "", FormatConsole:
		config.Encoding = FormatConsole
		config.EncoderConfig = zap.NewDevelopmentEncoderConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	case FormatJSON:
		config.Encoding = FormatJSON
	default:
		return nil, fmt.Errorf("unknown log format %q (want %s or %s)", opts.Format, FormatConsole, FormatJSON)
	}
	config.DisableStacktrace = !opts.Verbose
	config.Sampling = nil
	if opts.Verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
