// Package logging provides the logrus-backed domain.Logger used by
// cmd/iamcored. pkg/infrastructure.NewLogger (the teacher's own
// hand-rolled log.Logger wrapper) remains available for the generic
// pkg/fx.go wiring; this is the IAM service's own logger, since a real
// deployment wants logrus's structured fields and hooks rather than the
// teacher's line-oriented formatter.
package logging

import (
	"github.com/nexusiam/core/pkg/domain"
	"github.com/sirupsen/logrus"
)

// logrusLogger adapts *logrus.Logger to domain.Logger's key-value and
// printf-style method set.
type logrusLogger struct {
	entry *logrus.Entry
}

// New builds a domain.Logger backed by logrus, with level and format
// (text|json) matching pkg/infrastructure.Config.Logging's conventions.
func New(level, format string) domain.Logger {
	l := logrus.New()

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	l.SetLevel(parsed)

	if format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return &logrusLogger{entry: logrus.NewEntry(l)}
}

func fields(keysAndValues []interface{}) logrus.Fields {
	f := make(logrus.Fields, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		f[key] = keysAndValues[i+1]
	}
	return f
}

func (l *logrusLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.entry.WithFields(fields(keysAndValues)).Debug(msg)
}

func (l *logrusLogger) Info(msg string, keysAndValues ...interface{}) {
	l.entry.WithFields(fields(keysAndValues)).Info(msg)
}

func (l *logrusLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.entry.WithFields(fields(keysAndValues)).Warn(msg)
}

func (l *logrusLogger) Error(msg string, keysAndValues ...interface{}) {
	l.entry.WithFields(fields(keysAndValues)).Error(msg)
}

func (l *logrusLogger) Fatal(msg string, keysAndValues ...interface{}) {
	l.entry.WithFields(fields(keysAndValues)).Fatal(msg)
}

func (l *logrusLogger) Debugf(format string, args ...interface{}) {
	l.entry.Debugf(format, args...)
}

func (l *logrusLogger) Infof(format string, args ...interface{}) {
	l.entry.Infof(format, args...)
}

func (l *logrusLogger) Warnf(format string, args ...interface{}) {
	l.entry.Warnf(format, args...)
}

func (l *logrusLogger) Errorf(format string, args ...interface{}) {
	l.entry.Errorf(format, args...)
}

func (l *logrusLogger) Fatalf(format string, args ...interface{}) {
	l.entry.Fatalf(format, args...)
}

var _ domain.Logger = (*logrusLogger)(nil)
