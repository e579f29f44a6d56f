package config

import (
	"os"

	"github.com/sirupsen/logrus"
)

var logger = logrus.New()

// NewLogger builds the JSON logger used across the service
func NewLogger(level string) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	l.SetLevel(parsed)
	return l
}

// GetLogger returns the process-wide logger
func GetLogger() *logrus.Logger {
	return logger
}

// SetLogger replaces the process-wide logger
func SetLogger(l *logrus.Logger) {
	logger = l
}
