// Package logging wires up the shared logrus logger: leveled, optionally
// colored output with an optional file sink.
package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/mdsohelmia/smartchunking/internal/config"
)

// Logger bundles the configured logrus logger with the optional log file so
// the caller can close it when done.
type Logger struct {
	*logrus.Logger
	file *os.File
}

// NewLogger builds the logger from cfg. Call Close() when done if LogFile
// was set.
func NewLogger(cfg *config.Config) (*Logger, error) {
	log := logrus.New()
	log.SetOutput(os.Stdout)

	if cfg.Verbose {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.InfoLevel)
	}

	formatter := &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	}
	switch cfg.ColorMode {
	case config.ColorAlways:
		formatter.ForceColors = true
	case config.ColorNever:
		formatter.DisableColors = true
	}
	log.SetFormatter(formatter)

	l := &Logger{Logger: log}
	if cfg.LogFile != "" {
		dir := filepath.Dir(cfg.LogFile)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, err
		}
		l.file = f
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	}
	return l, nil
}

// Close closes the log file if one was opened.
func (l *Logger) Close() error {
	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}
