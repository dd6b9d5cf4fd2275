package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/mdsohelmia/smartchunking/internal/config"
)

func TestNewLoggerLevels(t *testing.T) {
	cfg := config.DefaultConfig()
	log, err := NewLogger(&cfg)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	defer log.Close()
	if log.GetLevel() != logrus.InfoLevel {
		t.Errorf("default level: got %v", log.GetLevel())
	}

	cfg.Verbose = true
	verbose, err := NewLogger(&cfg)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	defer verbose.Close()
	if verbose.GetLevel() != logrus.DebugLevel {
		t.Errorf("verbose level: got %v", verbose.GetLevel())
	}
}

func TestNewLoggerFileSink(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.LogFile = filepath.Join(dir, "logs", "run.log")
	cfg.ColorMode = config.ColorNever

	log, err := NewLogger(&cfg)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	log.Info("hello from the pipeline")
	if err := log.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(cfg.LogFile)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if len(data) == 0 {
		t.Error("log file is empty")
	}
}
