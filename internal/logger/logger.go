// Package logger builds the go-kit logger shared by every component.
package logger

import (
	"io"
	"os"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// Supported output formats.
const (
	LogFormatLogfmt = "logfmt"
	LogFormatJSON   = "json"
)

// NewLogger returns a leveled logger writing to stderr.
func NewLogger(logLevel, logFormat, name string) log.Logger {
	return New(os.Stderr, logLevel, logFormat, name)
}

// New returns a leveled logger writing to w. Unknown levels fall back to info.
func New(w io.Writer, logLevel, logFormat, name string) log.Logger {
	var logger log.Logger
	if logFormat == LogFormatJSON {
		logger = log.NewJSONLogger(log.NewSyncWriter(w))
	} else {
		logger = log.NewLogfmtLogger(log.NewSyncWriter(w))
	}

	logger = level.NewFilter(logger, levelOption(logLevel))
	logger = log.With(logger, "name", name)
	return log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)
}

func levelOption(logLevel string) level.Option {
	switch logLevel {
	case "error":
		return level.AllowError()
	case "warn":
		return level.AllowWarn()
	case "debug":
		return level.AllowDebug()
	default:
		return level.AllowInfo()
	}
}
