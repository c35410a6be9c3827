// Package logging builds the server's logrus logger.
//
// Output always goes to stderr because stdout carries the MCP protocol.
package logging

import (
	"fmt"
	"io"
	"os"
	"path"
	"runtime"

	formatter "github.com/antonfisher/nested-logrus-formatter"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options selects level, format and an optional rotated log file.
type Options struct {
	Level  string
	Format string
	File   string

	// Output replaces stderr. Used by tests.
	Output io.Writer
}

// New returns a configured logger. Unknown formats fall back to text.
func New(opts Options) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
	}

	logger := logrus.New()
	logger.SetLevel(level)

	switch opts.Format {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "nested":
		logger.SetFormatter(&formatter.Formatter{
			NoColors:        true,
			TimestampFormat: "02 Jan 06 - 15:04:05",
			CallerFirst:     true,
			CustomCallerFormatter: func(f *runtime.Frame) string {
				return fmt.Sprintf(" [%s:%d]", path.Base(f.File), f.Line)
			},
		})
		logger.SetReportCaller(true)
	default:
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, DisableColors: true})
	}

	var out io.Writer = os.Stderr
	if opts.Output != nil {
		out = opts.Output
	}
	if opts.File != "" {
		out = io.MultiWriter(out, &lumberjack.Logger{
			Filename:   opts.File,
			LocalTime:  true,
			MaxSize:    50,
			MaxBackups: 3,
			MaxAge:     7,
		})
	}
	logger.SetOutput(out)

	return logger, nil
}

// Discard returns a logger that drops everything.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
