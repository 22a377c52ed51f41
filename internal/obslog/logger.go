// Package obslog provides the logging setup shared by every rvpf
// component, adapted from the teacher's common.Logger/OutputSplitter
// (common/logging.go, common/logger.go): error-level entries route to
// stderr, everything else to stdout, so container log collectors can
// treat the two streams differently without parsing log bodies.
package obslog

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// OutputSplitter routes logrus-formatted output (text or JSON) to stderr
// for error-level entries and stdout for everything else.
type OutputSplitter struct{}

func (OutputSplitter) Write(p []byte) (int, error) {
	if bytes.Contains(p, []byte("level=error")) || bytes.Contains(p, []byte("level=fatal")) ||
		bytes.Contains(p, []byte(`"level":"error"`)) || bytes.Contains(p, []byte(`"level":"fatal"`)) {
		return os.Stderr.Write(p)
	}
	return os.Stdout.Write(p)
}

// Config configures a new logger instance.
type Config struct {
	Level      string // "debug", "info", "warn", "error"
	Format     string // "json" or "text"
	Service    string
	TimeFormat string
}

// DefaultConfig returns sensible defaults for a long-running service.
func DefaultConfig() Config {
	return Config{Level: "info", Format: "text", TimeFormat: time.RFC3339}
}

// New builds a logrus.Logger with the OutputSplitter installed and the
// service name attached to every entry.
func New(cfg Config) *logrus.Entry {
	if cfg.TimeFormat == "" {
		cfg.TimeFormat = time.RFC3339
	}
	logger := logrus.New()
	logger.SetOutput(OutputSplitter{})
	switch cfg.Format {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: cfg.TimeFormat})
	default:
		logger.SetFormatter(&logrus.TextFormatter{TimestampFormat: cfg.TimeFormat, FullTimestamp: true})
	}
	logger.SetLevel(parseLevel(cfg.Level))

	entry := logrus.NewEntry(logger)
	if cfg.Service != "" {
		entry = entry.WithField("service", cfg.Service)
	}
	return entry
}

func parseLevel(level string) logrus.Level {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// WithOperation returns a field-scoped entry and a completion func that
// logs the operation's duration and outcome when called — the
// teacher's LogOperation/LogDuration pattern (common/logger.go) collapsed
// into a single defer-friendly call.
func WithOperation(log *logrus.Entry, operation string) (*logrus.Entry, func(err error)) {
	start := time.Now()
	scoped := log.WithField("operation", operation)
	scoped.Info("operation started")
	return scoped, func(err error) {
		fields := scoped.WithFields(logrus.Fields{
			"duration_ms": time.Since(start).Milliseconds(),
		})
		if err != nil {
			fields.WithError(err).Error("operation failed")
			return
		}
		fields.Info("operation completed")
	}
}

// LogPanic recovers a panic (if any) and logs it through log, re-panicking
// is intentionally NOT performed — callers that need the panic to continue
// propagating should recover it themselves before calling this.
func LogPanic(log *logrus.Entry) {
	if r := recover(); r != nil {
		log.WithField("panic", fmt.Sprintf("%v", r)).Error("panic recovered")
	}
}
