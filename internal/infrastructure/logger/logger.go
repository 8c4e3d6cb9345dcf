// Package logger configures the process-wide structured logger.
package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is the structured logger handed to every component.
type Logger = *logrus.Logger

// Entry is a logger with fields already attached.
type Entry = *logrus.Entry

// Fields aliases logrus.Fields for call sites.
type Fields = logrus.Fields

// New returns a JSON logger with its level taken from the LOG_LEVEL
// environment variable (default info).
func New() Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(levelFromEnv())
	return log
}

// NewNop returns a logger that discards everything, for tests.
func NewNop() Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func levelFromEnv() logrus.Level {
	level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}
