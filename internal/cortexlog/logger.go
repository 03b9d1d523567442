// Package cortexlog wires up structured logging for the query core:
// logrus with a JSON formatter and an optional multi-writer file sink.
package cortexlog

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Log is the package-level logger every component pulls a *logrus.Entry
// from via For(component). Defaults to JSON-on-stdout at Info level.
var Log = logrus.New()

func init() {
	Log.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05Z07:00",
	})
	Log.SetOutput(os.Stdout)
	Log.SetLevel(logrus.InfoLevel)
}

// Init reconfigures the package logger's level and output destination. An
// empty logFilePath keeps stdout as the sole sink.
func Init(level logrus.Level, logFilePath string) error {
	Log.SetLevel(level)

	if logFilePath == "" {
		Log.SetOutput(os.Stdout)
		return nil
	}

	f, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	Log.SetOutput(io.MultiWriter(os.Stdout, f))
	return nil
}

// For returns a component-scoped entry, e.g. cortexlog.For("migrate").
func For(component string) *logrus.Entry {
	return Log.WithField("component", component)
}
