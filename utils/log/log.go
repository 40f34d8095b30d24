package log

import (
	"os"

	"github.com/sirupsen/logrus"
)

// global accessible logger
var (
	logger *logrus.Logger
	Log    *logrus.Entry
)

// This init function is only for testing cases, where the entry point is
// not the main function. Unit tests would fail with a nil pointer
// dereference if we don't init here.
func init() {
	InitLogger()
}

// InitLogger sets up the shared logger. The level comes from LOG_LEVEL and
// defaults to info.
func InitLogger() {
	logger = logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	Log = logger.WithFields(logrus.Fields{})
}
