package utils

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger returns a JSON logger tagged with the service name. The level
// comes from level ("debug", "info", ...) and falls back to info.
func NewLogger(service, level string) *logrus.Entry {
	return NewLoggerTo(os.Stdout, service, level)
}

func NewLoggerTo(w io.Writer, service, level string) *logrus.Entry {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	log.SetOutput(w)

	lvl, err := logrus.ParseLevel(level)
	if err != nil || level == "" {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)

	return log.WithField("service", service)
}

// DiscardLogger is used by tests and tools that do not want log output.
func DiscardLogger() *logrus.Entry {
	return NewLoggerTo(io.Discard, "test", "panic")
}
