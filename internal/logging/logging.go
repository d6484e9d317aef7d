package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"scribe/internal/config"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Configure sets up logrus with rotation. Console output goes to stderr so
// transcript echo on stdout stays clean.
func Configure(cfg *config.Config, debug bool) (*logrus.Logger, error) {
	if err := config.MustStatePaths(cfg); err != nil {
		return nil, err
	}
	logger := logrus.New()
	switch strings.ToLower(cfg.Logging.Format) {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	if lvl, err := logrus.ParseLevel(strings.ToLower(cfg.Logging.Level)); err == nil {
		logger.SetLevel(lvl)
	}
	if debug {
		logger.SetLevel(logrus.DebugLevel)
		logger.SetReportCaller(true)
	}
	rotator := &lumberjack.Logger{
		Filename:   cfg.Paths.LogPath,
		MaxSize:    20, // megabytes
		MaxBackups: 3,
		MaxAge:     30,
		Compress:   false,
	}
	if cfg.Logging.Stdout {
		logger.SetOutput(io.MultiWriter(os.Stderr, rotator))
	} else {
		logger.SetOutput(rotator)
	}
	return logger, nil
}

// ForRun scopes logger to one transcription: a short run ID and the source
// file name are attached to every line.
func ForRun(logger *logrus.Logger, runID, input string) *logrus.Entry {
	short := runID
	if len(short) > 8 {
		short = short[:8]
	}
	return logger.WithFields(logrus.Fields{"run": short, "source": filepath.Base(input)})
}

// Discard returns a logger that discards everything.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.SetLevel(logrus.DebugLevel)
	return logger
}
