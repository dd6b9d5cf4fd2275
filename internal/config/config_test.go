package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Plan.TargetDuration != 60.0 {
		t.Errorf("target default: got %v", cfg.Plan.TargetDuration)
	}
	if !cfg.Plan.AvoidTinyLast {
		t.Error("AvoidTinyLast should default on")
	}
	if cfg.Workers != 1 {
		t.Errorf("workers default: got %d", cfg.Workers)
	}
	if cfg.ColorMode != ColorAuto {
		t.Errorf("color default: got %s", cfg.ColorMode)
	}
}

func TestValidateRequiresPositionals(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err == nil {
		t.Error("missing input/chunks dir must fail validation")
	}

	cfg.Input = "in.mp4"
	cfg.ChunksDir = "chunks"
	if err := cfg.Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}
	if !cfg.SkipStitch {
		t.Error("empty output must imply SkipStitch")
	}
}

func TestValidateRanges(t *testing.T) {
	cases := []func(*Config){
		func(c *Config) { c.Plan.SceneThreshold = 1.5 },
		func(c *Config) { c.Plan.ComplexityWeight = -0.1 },
		func(c *Config) { c.Plan.TargetDuration = -1 },
		func(c *Config) { c.Workers = -2 },
		func(c *Config) { c.ForceFormat = "avi" },
		func(c *Config) { c.ColorMode = "sometimes" },
	}
	for i, mutate := range cases {
		cfg := DefaultConfig()
		cfg.Input = "in.mp4"
		cfg.ChunksDir = "chunks"
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("case %d: invalid config accepted", i)
		}
	}
}

func TestParseFlagsPositionalsAndOverrides(t *testing.T) {
	cfg := DefaultConfig()
	err := ParseFlags(&cfg, []string{
		"--target", "30", "--max-chunks", "8", "--frag",
		"--allow-tiny-last", "--workers", "4",
		"in.mp4", "chunks", "out.mp4",
	})
	if err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}

	if cfg.Plan.TargetDuration != 30 {
		t.Errorf("target: got %v", cfg.Plan.TargetDuration)
	}
	if cfg.Plan.MaxChunks != 8 {
		t.Errorf("max chunks: got %d", cfg.Plan.MaxChunks)
	}
	if cfg.Plan.AvoidTinyLast {
		t.Error("--allow-tiny-last must clear AvoidTinyLast")
	}
	if !cfg.Fragmented || cfg.Workers != 4 {
		t.Errorf("frag/workers: got %v/%d", cfg.Fragmented, cfg.Workers)
	}
	if cfg.Input != "in.mp4" || cfg.ChunksDir != "chunks" || cfg.Output != "out.mp4" {
		t.Errorf("positionals: got %q %q %q", cfg.Input, cfg.ChunksDir, cfg.Output)
	}
}

func TestParseFlagsRejectsBadPositionals(t *testing.T) {
	cfg := DefaultConfig()
	if err := ParseFlags(&cfg, []string{"only-input.mp4"}); err == nil {
		t.Error("single positional must fail")
	}
}

func TestLoadFileOverlaysAndFlagsWin(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chunking.yaml")
	yaml := strings.Join([]string{
		"plan:",
		"  target: 45",
		"  scene_detection: true",
		"  scene_threshold: 0.5",
		"fragmented: true",
		"workers: 8",
	}, "\n")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := DefaultConfig()
	err := ParseFlags(&cfg, []string{"--config", path, "--workers", "2", "in.mp4", "chunks"})
	if err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}

	if cfg.Plan.TargetDuration != 45 {
		t.Errorf("file target: got %v", cfg.Plan.TargetDuration)
	}
	if !cfg.Plan.SceneDetection || cfg.Plan.SceneThreshold != 0.5 {
		t.Errorf("file scene options not applied: %+v", cfg.Plan)
	}
	if !cfg.Fragmented {
		t.Error("file fragmented not applied")
	}
	if cfg.Workers != 2 {
		t.Errorf("explicit flag must win over file: got %d", cfg.Workers)
	}
}
