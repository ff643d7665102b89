package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

const (
	timeFormat = "2006-01-02 15:04:05"
)

var logger = logrus.NewEntry(logrus.StandardLogger())

// Fields ...
type Fields logrus.Fields

// Init configures the global logger for the given module.
func Init(module string, level string) {
	InitWithOutput(module, level, os.Stdout)
}

// InitWithOutput is Init with a custom writer, used by tests.
func InitWithOutput(module string, level string, out io.Writer) {
	customFormatter := &logrus.TextFormatter{}
	customFormatter.TimestampFormat = timeFormat
	customFormatter.FullTimestamp = true
	logrus.SetFormatter(customFormatter)
	logrus.SetOutput(out)
	logrus.SetLevel(ParseLevel(level))
	logger = logrus.WithFields(logrus.Fields{
		"module": module,
	})
	logger.WithFields(logrus.Fields{
		"event": "init_logger",
		"level": logrus.GetLevel().String(),
	}).Info("logger initiated")
}

// ParseLevel maps a config value to a logrus level, falling back to info.
func ParseLevel(level string) logrus.Level {
	switch level {
	case "error":
		return logrus.ErrorLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "debug":
		return logrus.DebugLevel
	default:
		return logrus.InfoLevel
	}
}

// WithFields ...
func WithFields(fields Fields) *logrus.Entry {
	return logger.WithFields(logrus.Fields(fields))
}
