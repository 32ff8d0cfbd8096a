package config

import (
	"io"
	"os"
	"path/filepath"

	"coalition-api/services"

	"github.com/sirupsen/logrus"
)

// Log is the application logger.
var Log = logrus.New()

// LogWriter is the writer used for application and database logs.
var LogWriter io.Writer = os.Stdout

// LogFilePath returns the path to the backend log file.
func LogFilePath() string {
	return filepath.Join("logs", "coalition-api.log")
}

// InitLogging prepares the log file and configures the logger level,
// formatter and output.
func InitLogging(cfg *AppConfig) *os.File {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		Log.Warnf("Invalid log level '%s', defaulting to 'info'", cfg.LogLevel)
		level = logrus.InfoLevel
	}
	Log.SetLevel(level)
	services.SetLogger(Log)

	if cfg.IsProduction() {
		Log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	} else {
		Log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	if err := os.MkdirAll(filepath.Dir(LogFilePath()), os.ModePerm); err != nil {
		Log.Warnf("Failed to create logs directory: %v", err)
	}

	logFile, err := os.OpenFile(LogFilePath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		Log.Warnf("Failed to open log file: %v", err)
		LogWriter = os.Stdout
		Log.SetOutput(LogWriter)
		return nil
	}

	LogWriter = io.MultiWriter(os.Stdout, logFile)
	Log.SetOutput(LogWriter)
	return logFile
}
